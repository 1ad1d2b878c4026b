package virustotal

import (
	"context"
	"net/url"

	"github.com/throughline-systems/supplychain/core"
	"github.com/throughline-systems/supplychain/handler"
)

// IPReportHandler implements the "ip_report" api_class:
// GET ip-address/report?ip=...
type IPReportHandler struct {
	Client *Client
}

func (h IPReportHandler) Process(ctx context.Context, input core.Dict, credential core.Dict) (handler.Cargo, error) {
	q := url.Values{"ip": {input.StringValue("ip")}}
	return h.Client.get(ctx, "ip-address/report", q, credential)
}

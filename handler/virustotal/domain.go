package virustotal

import (
	"context"
	"net/url"

	"github.com/throughline-systems/supplychain/core"
	"github.com/throughline-systems/supplychain/handler"
)

// DomainReportHandler implements the "domain_report" api_class:
// GET domain/report?domain=...
type DomainReportHandler struct {
	Client *Client
}

func (h DomainReportHandler) Process(ctx context.Context, input core.Dict, credential core.Dict) (handler.Cargo, error) {
	q := url.Values{"domain": {input.StringValue("domain")}}
	return h.Client.get(ctx, "domain/report", q, credential)
}

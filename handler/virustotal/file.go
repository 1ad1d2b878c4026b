package virustotal

import (
	"context"
	"net/url"

	"github.com/throughline-systems/supplychain/core"
	"github.com/throughline-systems/supplychain/handler"
)

// FileScanHandler implements the "file_scan" api_class:
// POST file/scan (multipart), uploading input["file_content"] under
// the name input["file_name"].
type FileScanHandler struct {
	Client *Client
}

func (h FileScanHandler) Process(ctx context.Context, input core.Dict, credential core.Dict) (handler.Cargo, error) {
	name := input.StringValue("file_name")
	if name == "" {
		name = "sample"
	}
	content := []byte(input.StringValue("file_content"))
	return h.Client.postMultipart(ctx, "file/scan", name, content, credential)
}

// FileReportHandler implements the "file_report" api_class:
// POST file/report (form: resource=...)
type FileReportHandler struct {
	Client *Client
}

func (h FileReportHandler) Process(ctx context.Context, input core.Dict, credential core.Dict) (handler.Cargo, error) {
	form := url.Values{"resource": {input.StringValue("resource")}}
	return h.Client.postForm(ctx, "file/report", form, credential)
}

// FileRescanHandler implements the "file_rescan" api_class:
// POST file/rescan (form: resource=...)
type FileRescanHandler struct {
	Client *Client
}

func (h FileRescanHandler) Process(ctx context.Context, input core.Dict, credential core.Dict) (handler.Cargo, error) {
	form := url.Values{"resource": {input.StringValue("resource")}}
	return h.Client.postForm(ctx, "file/rescan", form, credential)
}

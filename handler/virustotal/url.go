package virustotal

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/throughline-systems/supplychain/core"
	"github.com/throughline-systems/supplychain/handler"
	"github.com/throughline-systems/supplychain/resilience"
)

const (
	urlReportWait     = 60 * time.Second
	urlReportMaxTries = 7 // one initial call plus up to 6 retries
)

// URLScanHandler implements the "url_scan" api_class:
// POST url/scan (form: url=...)
type URLScanHandler struct {
	Client *Client
}

func (h URLScanHandler) Process(ctx context.Context, input core.Dict, credential core.Dict) (handler.Cargo, error) {
	form := url.Values{"url": {input.StringValue("url")}}
	return h.Client.postForm(ctx, "url/scan", form, credential)
}

// URLReportHandler implements the "url_report" api_class:
// POST url/report (form: resource=..., scan=1). If the first response
// carries a scan_id but no scans yet, it polls the same endpoint with
// resource set to that scan_id every Wait (default 60s), up to
// MaxTries total attempts (default 7: one initial call plus 6
// retries), before giving up and returning the last Cargo seen.
type URLReportHandler struct {
	Client   *Client
	Wait     time.Duration
	MaxTries int
}

func (h URLReportHandler) Process(ctx context.Context, input core.Dict, credential core.Dict) (handler.Cargo, error) {
	wait := h.Wait
	if wait <= 0 {
		wait = urlReportWait
	}
	maxTries := h.MaxTries
	if maxTries <= 0 {
		maxTries = urlReportMaxTries
	}

	resource := input.StringValue("resource")

	cargo, err := resilience.BoundedPoll(ctx, wait, maxTries, func(attempt int) (resilience.PollDecision[handler.Cargo], error) {
		form := url.Values{"resource": {resource}, "scan": {"1"}}
		c, err := h.Client.postForm(ctx, "url/report", form, credential)
		if err != nil {
			return resilience.PollDecision[handler.Cargo]{}, err
		}

		if c.Data == nil {
			return resilience.PollDecision[handler.Cargo]{Result: c, Done: true}, nil
		}
		_, hasScans := c.Data["scans"]
		scanID, hasScanID := c.Data["scan_id"]
		if hasScans || !hasScanID {
			return resilience.PollDecision[handler.Cargo]{Result: c, Done: true}, nil
		}

		resource, _ = scanID.(string)
		return resilience.PollDecision[handler.Cargo]{Result: c, Done: false}, nil
	})

	if errors.Is(err, resilience.ErrPollBudgetExhausted) {
		return cargo, nil
	}
	return cargo, err
}

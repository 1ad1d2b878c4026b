// Package virustotal implements handler.RequestHandler for the
// VirusTotal public API v2: file scan/report/rescan, URL scan/report,
// IP address report and domain report.
package virustotal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/throughline-systems/supplychain/core"
	"github.com/throughline-systems/supplychain/handler"
)

const baseURL = "https://www.virustotal.com/vtapi/v2/"

// Client performs HTTP calls against the VirusTotal v2 API and
// normalizes every response into a handler.Cargo. One Client is shared
// by every endpoint handler in this package.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds a Client. Pass nil to use http.DefaultClient; in
// production callers should pass telemetry.NewTracedHTTPClient so
// provider calls show up in the same trace as the SupplyOrder.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

func apiKey(credential core.Dict) string {
	return credential.StringValue("api_key")
}

func (c *Client) get(ctx context.Context, path string, query url.Values, credential core.Dict) (handler.Cargo, error) {
	query.Set("apikey", apiKey(credential))
	u := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return handler.Cargo{}, fmt.Errorf("building request: %w", err)
	}
	return c.do(req)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, credential core.Dict) (handler.Cargo, error) {
	q := url.Values{"apikey": {apiKey(credential)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path+"?"+q.Encode(), strings.NewReader(form.Encode()))
	if err != nil {
		return handler.Cargo{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// postMultipart uploads fileName/fileContent as the "file" field of a
// multipart/form-data POST, used by file/scan.
func (c *Client) postMultipart(ctx context.Context, path, fileName string, fileContent []byte, credential core.Dict) (handler.Cargo, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return handler.Cargo{}, fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := part.Write(fileContent); err != nil {
		return handler.Cargo{}, fmt.Errorf("writing multipart body: %w", err)
	}
	if err := w.Close(); err != nil {
		return handler.Cargo{}, fmt.Errorf("closing multipart body: %w", err)
	}

	q := url.Values{"apikey": {apiKey(credential)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path+"?"+q.Encode(), &buf)
	if err != nil {
		return handler.Cargo{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

func (c *Client) do(req *http.Request) (handler.Cargo, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return handler.Cargo{}, fmt.Errorf("%w: %v", core.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return handler.Cargo{}, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return handler.Cargo{}, &handler.TransportError{StatusCode: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}

	return parseCargo(body)
}

// parseCargo decodes a VirusTotal JSON response, pulling
// response_code into Cargo.StatusCode and verbose_msg into
// Cargo.Notes; everything else becomes Cargo.Data.
func parseCargo(body []byte) (handler.Cargo, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return handler.Cargo{}, fmt.Errorf("decoding virustotal response: %w", err)
	}

	cargo := handler.Cargo{Data: core.Dict{}}
	for k, v := range raw {
		switch k {
		case "response_code":
			cargo.StatusCode = stringify(v)
		case "verbose_msg":
			if s, ok := v.(string); ok {
				cargo.Notes = s
			}
		default:
			cargo.Data[k] = v
		}
	}
	return cargo, nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

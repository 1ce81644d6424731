// Package gradio is a client for Gradio apps hosted on Hugging Face Spaces.
// It resolves a Space, reads its API description and calls named endpoints
// through the queue-less /call protocol.
package gradio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/n0madic/go-gradiogate/internal/payload"
	"github.com/n0madic/go-gradiogate/internal/session"
	"github.com/n0madic/go-gradiogate/internal/stream"
)

// DefaultHubURL is the Hugging Face Spaces API used to resolve Space ids.
const DefaultHubURL = "https://huggingface.co/api/spaces"

// Options configures a Connector.
type Options struct {
	// Transport carries every outbound request. Nil means http.DefaultTransport.
	Transport http.RoundTripper
	// HubURL overrides DefaultHubURL.
	HubURL string
	// Debug dumps outbound requests and responses to stderr.
	Debug bool
}

// Connector opens connections to Spaces.
type Connector struct {
	base   *http.Client
	hubURL string
	debug  bool
	dumpMu sync.Mutex
}

// NewConnector returns a Connector.
func NewConnector(opts Options) *Connector {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	hub := strings.TrimRight(strings.TrimSpace(opts.HubURL), "/")
	if hub == "" {
		hub = DefaultHubURL
	}
	return &Connector{
		base:   &http.Client{Transport: transport},
		hubURL: hub,
		debug:  opts.Debug,
	}
}

// Connect resolves endpointRef, which is either an http(s) root URL or a
// Space id such as "owner/name", and loads its API description. A non-empty
// credential is sent as a bearer token on every request.
func (c *Connector) Connect(ctx context.Context, endpointRef, credential string) (session.Handle, error) {
	httpClient := c.base
	if credential != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential, TokenType: "Bearer"})
		httpClient = oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.base), ts)
	}

	cl := &Client{http: httpClient, conn: c}
	root, err := cl.resolveRoot(ctx, endpointRef)
	if err != nil {
		return nil, err
	}
	cl.root = root

	cfg, err := cl.getJSON(ctx, root+"/config")
	if err != nil {
		return nil, fmt.Errorf("load config of %s: %w", endpointRef, err)
	}
	cl.prefix = strings.TrimRight(cfg.Get("api_prefix").String(), "/")

	info, err := cl.getJSON(ctx, cl.apiURL("/info"))
	if err != nil {
		return nil, fmt.Errorf("load api info of %s: %w", endpointRef, err)
	}
	cl.endpoints = parseEndpoints(info)
	if len(cl.endpoints) == 0 {
		return nil, fmt.Errorf("space %s exposes no named endpoints", endpointRef)
	}

	slog.Debug("gradio.connect", "endpoint", endpointRef, "root", root,
		"anonymous", credential == "", "endpoints", len(cl.endpoints))
	return cl, nil
}

// Parameter is one positional input of a named endpoint.
type Parameter struct {
	Name       string
	HasDefault bool
	Default    json.RawMessage
}

// Client is a live connection to one Space. It is safe for concurrent use.
type Client struct {
	http      *http.Client
	conn      *Connector
	root      string
	prefix    string
	endpoints map[string][]Parameter
}

// Root returns the resolved Space URL.
func (c *Client) Root() string {
	return c.root
}

// Endpoints returns the named endpoint names.
func (c *Client) Endpoints() []string {
	names := make([]string, 0, len(c.endpoints))
	for name := range c.endpoints {
		names = append(names, name)
	}
	return names
}

// Invoke calls the named endpoint with keyword arguments and waits for the
// final output. One output yields a single value; several yield a sequence.
// Non-string outputs are returned as JSON text.
func (c *Client) Invoke(ctx context.Context, operation string, args *payload.Payload) (session.Result, error) {
	name := "/" + strings.TrimLeft(operation, "/")
	params, ok := c.endpoints[name]
	if !ok {
		return session.Result{}, fmt.Errorf("endpoint %s not found on %s", name, c.root)
	}
	data, err := positionalArgs(name, params, args)
	if err != nil {
		return session.Result{}, err
	}
	body, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return session.Result{}, fmt.Errorf("encode arguments: %w", err)
	}

	callURL := c.apiURL("/call" + name)
	started, err := c.do(ctx, http.MethodPost, callURL, body)
	if err != nil {
		return session.Result{}, err
	}
	eventID := started.Get("event_id").String()
	if eventID == "" {
		return session.Result{}, fmt.Errorf("%s: response has no event_id", callURL)
	}

	return c.await(ctx, callURL+"/"+eventID)
}

// positionalArgs lays keyword args out in parameter order, filling defaults.
func positionalArgs(endpoint string, params []Parameter, args *payload.Payload) ([]any, error) {
	known := make(map[string]bool, len(params))
	data := make([]any, 0, len(params))
	for _, p := range params {
		known[p.Name] = true
		if v, ok := args.Get(p.Name); ok {
			data = append(data, v)
			continue
		}
		if !p.HasDefault {
			return nil, fmt.Errorf("endpoint %s: missing required parameter %q", endpoint, p.Name)
		}
		if len(p.Default) == 0 {
			data = append(data, nil)
		} else {
			data = append(data, p.Default)
		}
	}
	for _, key := range args.Keys() {
		if !known[key] {
			return nil, fmt.Errorf("endpoint %s: unexpected parameter %q", endpoint, key)
		}
	}
	return data, nil
}

// await reads the result stream of a call until it completes or fails.
func (c *Client) await(ctx context.Context, resultURL string) (session.Result, error) {
	req, err := newRequest(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return session.Result{}, err
	}
	req.Header.Set("Accept", "text/event-stream")
	c.conn.dumpRequest(req, nil)

	resp, err := c.http.Do(req)
	if err != nil {
		return session.Result{}, fmt.Errorf("GET %s: %w", resultURL, err)
	}
	defer resp.Body.Close()
	body, err := decodedBody(resp)
	if err != nil {
		return session.Result{}, err
	}
	if err := checkStatus(resp, body); err != nil {
		return session.Result{}, err
	}

	reader := stream.NewReader(body)
	for {
		evt, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return session.Result{}, fmt.Errorf("%s: stream ended without a result", resultURL)
		}
		if err != nil {
			return session.Result{}, fmt.Errorf("read %s: %w", resultURL, err)
		}
		c.conn.dumpEvent(resultURL, evt)

		switch evt.Type {
		case "complete":
			return outputs(evt.JSON()), nil
		case "error":
			msg := evt.JSON().String()
			if msg == "" || msg == "null" {
				msg = "the upstream Gradio app has raised an exception"
			}
			return session.Result{}, errors.New(msg)
		}
	}
}

func outputs(data gjson.Result) session.Result {
	if !data.IsArray() {
		return session.Result{Values: []string{valueText(data)}}
	}
	items := data.Array()
	values := make([]string, len(items))
	for i, item := range items {
		values[i] = valueText(item)
	}
	return session.Result{Values: values, Sequence: len(values) > 1}
}

func valueText(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.String()
	case gjson.Null:
		return ""
	default:
		return v.Raw
	}
}

func parseEndpoints(info gjson.Result) map[string][]Parameter {
	endpoints := make(map[string][]Parameter)
	info.Get("named_endpoints").ForEach(func(key, value gjson.Result) bool {
		var params []Parameter
		value.Get("parameters").ForEach(func(_, p gjson.Result) bool {
			param := Parameter{
				Name:       p.Get("parameter_name").String(),
				HasDefault: p.Get("parameter_has_default").Bool(),
			}
			if def := p.Get("parameter_default"); def.Exists() {
				param.Default = json.RawMessage(def.Raw)
			}
			params = append(params, param)
			return true
		})
		endpoints[key.String()] = params
		return true
	})
	return endpoints
}

func (c *Client) resolveRoot(ctx context.Context, endpointRef string) (string, error) {
	ref := strings.TrimSpace(endpointRef)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return strings.TrimRight(ref, "/"), nil
	}
	if strings.Count(ref, "/") != 1 {
		return "", fmt.Errorf("invalid space id %q", endpointRef)
	}
	res, err := c.getJSON(ctx, c.conn.hubURL+"/"+ref+"/host")
	if err != nil {
		return "", fmt.Errorf("resolve space %s: %w", ref, err)
	}
	host := strings.TrimRight(res.Get("host").String(), "/")
	if host == "" {
		return "", fmt.Errorf("resolve space %s: no host in response", ref)
	}
	return host, nil
}

func (c *Client) apiURL(path string) string {
	return c.root + c.prefix + path
}

func (c *Client) getJSON(ctx context.Context, url string) (gjson.Result, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

// do sends a request and parses a JSON response body.
func (c *Client) do(ctx context.Context, method, url string, body []byte) (gjson.Result, error) {
	req, err := newRequest(ctx, method, url, body)
	if err != nil {
		return gjson.Result{}, err
	}
	c.conn.dumpRequest(req, body)

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	rd, err := decodedBody(resp)
	if err != nil {
		return gjson.Result{}, err
	}
	if err := checkStatus(resp, rd); err != nil {
		return gjson.Result{}, err
	}
	raw, err := io.ReadAll(io.LimitReader(rd, maxBodyBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read %s: %w", url, err)
	}
	c.conn.dumpResponse(resp, raw)

	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%s %s: response is not JSON", method, url)
	}
	return gjson.ParseBytes(raw), nil
}

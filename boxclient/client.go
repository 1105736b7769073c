// Package boxclient reads application boxes over a node's HTTP API. It is
// the remote counterpart of the local box mirror: same records, fetched from
// the network instead of disk.
package boxclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tradeflow/query"
)

const defaultTimeout = 10 * time.Second

// Client fetches box records for one application from a node REST endpoint.
type Client struct {
	baseURL   string
	appID     uint64
	authToken string
	http      *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithAuthToken attaches a bearer token to every request.
func WithAuthToken(token string) Option {
	return func(c *Client) { c.authToken = token }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, appID uint64, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		appID:   appID,
		http: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type boxDescriptor struct {
	Name string `json:"name"`
}

type boxListResponse struct {
	Boxes []boxDescriptor `json:"boxes"`
}

type boxValueResponse struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ListBoxes fetches the names of every box held by the application, then the
// value of each box whose name carries the requested prefix. Implements
// query.BoxReader.
func (c *Client) ListBoxes(ctx context.Context, prefix []byte) ([]query.Box, error) {
	listURL := fmt.Sprintf("%s/v2/applications/%d/boxes", c.baseURL, c.appID)
	var listed boxListResponse
	if err := c.getJSON(ctx, listURL, &listed); err != nil {
		return nil, fmt.Errorf("list boxes: %w", err)
	}

	var out []query.Box
	for _, desc := range listed.Boxes {
		name, err := base64.StdEncoding.DecodeString(desc.Name)
		if err != nil {
			return nil, fmt.Errorf("box name %q: %w", desc.Name, err)
		}
		if !bytes.HasPrefix(name, prefix) {
			continue
		}
		value, err := c.fetchBox(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, query.Box{Name: name, Value: value})
	}
	return out, nil
}

func (c *Client) fetchBox(ctx context.Context, name []byte) ([]byte, error) {
	encoded := base64.StdEncoding.EncodeToString(name)
	boxURL := fmt.Sprintf("%s/v2/applications/%d/box?name=%s", c.baseURL, c.appID,
		url.QueryEscape("b64:"+encoded))
	var resp boxValueResponse
	if err := c.getJSON(ctx, boxURL, &resp); err != nil {
		return nil, fmt.Errorf("fetch box %x: %w", name, err)
	}
	value, err := base64.StdEncoding.DecodeString(resp.Value)
	if err != nil {
		return nil, fmt.Errorf("box value %x: %w", name, err)
	}
	return value, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("node returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

package pathstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client communicates with the pathstore HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NodeRequest is the body for PUT /kv/{key}.
type NodeRequest struct {
	Value      any     `json:"value"`
	MergeMode  string  `json:"merge_mode,omitempty"`
	MemoryType string  `json:"memory_type,omitempty"`
	Salience   float64 `json:"salience,omitempty"`
	Source     string  `json:"source,omitempty"`
}

// NodeResponse is the response from GET /kv/{key}.
type NodeResponse struct {
	Key        string  `json:"key_path"`
	Value      any     `json:"value"`
	MemoryType string  `json:"memory_type,omitempty"`
	Salience   float64 `json:"salience,omitempty"`
}

// LinkRequest is the body for PUT /links.
type LinkRequest struct {
	From          string  `json:"from_key"`
	To            string  `json:"to_key"`
	Weight        float64 `json:"weight"`
	Summary       string  `json:"summary,omitempty"`
	Bidirectional bool    `json:"bidirectional,omitempty"`
}

// ListChildrenResponse is a single node from a prefix scan.
type ListChildrenResponse struct {
	Key   string `json:"key_path"`
	Value any    `json:"value"`
}

// do sends one request. body, when non-nil, is sent as JSON. Any status
// outside ok is returned as an error carrying the start of the response.
func (c *Client) do(ctx context.Context, method, u string, body any, ok ...int) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	for _, code := range ok {
		if resp.StatusCode == code {
			return resp, nil
		}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
}

// StatusError is an unexpected HTTP status from pathstore.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// PutNode stores or updates a node at the given path.
func (c *Client) PutNode(ctx context.Context, key string, req NodeRequest) error {
	resp, err := c.do(ctx, http.MethodPut, c.baseURL+"/kv/"+key, req, http.StatusOK, http.StatusCreated)
	if err != nil {
		return fmt.Errorf("put node %s: %w", key, err)
	}
	resp.Body.Close()
	return nil
}

// GetNode retrieves a node by key. A missing node is (nil, nil).
func (c *Client) GetNode(ctx context.Context, key string) (*NodeResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/kv/"+key, nil, http.StatusOK, http.StatusNotFound)
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	var node NodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}
	return &node, nil
}

// DeleteNode deletes a node and optionally its children.
func (c *Client) DeleteNode(ctx context.Context, key string, recursive bool) error {
	u := c.baseURL + "/kv/" + key
	if recursive {
		u += "?children=true"
	}
	resp, err := c.do(ctx, http.MethodDelete, u, nil, http.StatusOK, http.StatusNoContent)
	if err != nil {
		return fmt.Errorf("delete node %s: %w", key, err)
	}
	resp.Body.Close()
	return nil
}

// ListChildren does a prefix scan under the given key.
func (c *Client) ListChildren(ctx context.Context, key string, limit int) ([]ListChildrenResponse, error) {
	u := c.baseURL + "/kv/" + key + "/*"
	if limit > 0 {
		u += "?limit=" + url.QueryEscape(strconv.Itoa(limit))
	}
	resp, err := c.do(ctx, http.MethodGet, u, nil, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("list children %s: %w", key, err)
	}
	defer resp.Body.Close()

	var result struct {
		Nodes []ListChildrenResponse `json:"nodes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode children: %w", err)
	}
	return result.Nodes, nil
}

// PutLink creates or updates an edge between two nodes.
func (c *Client) PutLink(ctx context.Context, req LinkRequest) error {
	resp, err := c.do(ctx, http.MethodPut, c.baseURL+"/links", req, http.StatusOK, http.StatusCreated)
	if err != nil {
		return fmt.Errorf("put link %s -> %s: %w", req.From, req.To, err)
	}
	resp.Body.Close()
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

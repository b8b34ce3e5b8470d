// Package client provides a Go client for the deployconf server API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a deployconf server API client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a new deployconf client
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NetworkSummary is a configured network and whether its profile is valid
type NetworkSummary struct {
	Name   string `json:"name"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// NetworkList is the response for listing networks
type NetworkList struct {
	CompilerVersion string           `json:"compilerVersion"`
	Networks        []NetworkSummary `json:"networks"`
}

// Network is a resolved network profile. Accounts are masked by the server.
type Network struct {
	CompilerVersion string   `json:"compilerVersion"`
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Accounts        []string `json:"accounts"`
	ChainID         int      `json:"chainId,omitempty"`
}

// Snapshot is a config snapshot recorded by the server
type Snapshot struct {
	ID              string   `json:"id"`
	ContentHash     string   `json:"contentHash"`
	CompilerVersion string   `json:"compilerVersion"`
	Networks        []string `json:"networks"`
	Source          string   `json:"source,omitempty"`
	CreatedAt       string   `json:"createdAt"`
	Current         bool     `json:"current"`
}

// Resolution is one entry of the server's resolution audit log
type Resolution struct {
	ID         string `json:"id"`
	SnapshotID string `json:"snapshotId,omitempty"`
	Network    string `json:"network"`
	ClientIP   string `json:"clientIp,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

// ResolutionFilter narrows ListResolutions
type ResolutionFilter struct {
	Network    string
	SnapshotID string
	Limit      int
}

// APIError represents an API error response
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnknownNetwork reports whether err is the server's unknown network error
func IsUnknownNetwork(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "UNKNOWN_NETWORK"
}

// IsInvalidProfile reports whether err is the server's invalid profile error
func IsInvalidProfile(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "INVALID_PROFILE"
}

// Health checks that the server is up
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/healthz", nil)
}

// GetCompiler returns the pinned compiler version
func (c *Client) GetCompiler(ctx context.Context) (string, error) {
	var resp struct {
		CompilerVersion string `json:"compilerVersion"`
	}
	if err := c.get(ctx, "/api/v1/compiler", &resp); err != nil {
		return "", err
	}
	return resp.CompilerVersion, nil
}

// ListNetworks lists configured networks with their validity
func (c *Client) ListNetworks(ctx context.Context) (*NetworkList, error) {
	var resp NetworkList
	if err := c.get(ctx, "/api/v1/networks", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetNetwork resolves a network by exact name
func (c *Client) GetNetwork(ctx context.Context, name string) (*Network, error) {
	var resp Network
	if err := c.get(ctx, "/api/v1/networks/"+url.PathEscape(name), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSnapshots lists recorded config snapshots, newest first
func (c *Client) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	path := "/api/v1/snapshots"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var resp struct {
		Data []Snapshot `json:"data"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListResolutions lists the resolution audit log, newest first
func (c *Client) ListResolutions(ctx context.Context, filter ResolutionFilter) ([]Resolution, error) {
	q := url.Values{}
	if filter.Network != "" {
		q.Set("network", filter.Network)
	}
	if filter.SnapshotID != "" {
		q.Set("snapshot", filter.SnapshotID)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	path := "/api/v1/resolutions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Data []Resolution `json:"data"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return parseError(resp)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func parseError(resp *http.Response) error {
	var errResp struct {
		Error APIError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error.Code == "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "HTTP_" + strconv.Itoa(resp.StatusCode),
			Message:    resp.Status,
		}
	}
	errResp.Error.StatusCode = resp.StatusCode
	return &errResp.Error
}

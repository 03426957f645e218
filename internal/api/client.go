// Package api implements the HTTP client for the remote mail service.
// Success or failure of every call is determined purely by the HTTP
// status-code range; response bodies are not consulted for errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mailtrack/internal/config"
	"mailtrack/pkg/model"
)

// Client talks to the remote mail service. Every call takes a context;
// view teardown cancels in-flight requests through it.
type Client struct {
	origin string
	http   *http.Client
	token  *TokenHolder
}

// NewClient creates a client from configuration.
func NewClient(cfg config.APIConfig) *Client {
	return &Client{
		origin: strings.TrimRight(cfg.Origin, "/"),
		http: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		token: NewTokenHolder(cfg.Token),
	}
}

// Token returns the session token holder.
func (c *Client) Token() *TokenHolder {
	return c.token
}

// collectionEnvelope is the wire shape of a collection fetch response.
type collectionEnvelope struct {
	Status string           `json:"status"`
	Data   []model.Document `json:"data"`
}

// FetchCollection retrieves the full record set for one resource, e.g.
// "mail", "branches", "users".
func (c *Client) FetchCollection(ctx context.Context, resource string) ([]model.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(resource), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelope collectionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding %s collection: %w", resource, err)
	}
	return envelope.Data, nil
}

// ClaimRequest is the payload of a bulk claim submission.
type ClaimRequest struct {
	Identifiers     []string `json:"identifiers"`
	BranchCode      string   `json:"branchCode"`
	ReferenceNumber string   `json:"referenceNumber"`
	PersonName      string   `json:"personName"`
	PersonContact   string   `json:"personContact"`
	Status          string   `json:"status"`
	IDNumber        string   `json:"idNumber"`
	Note            string   `json:"note"`
}

// SubmitClaim issues one atomic claim call for the full batch. There is
// no partial per-identifier result; the call fully succeeds or fully
// fails.
func (c *Client) SubmitClaim(ctx context.Context, claim ClaimRequest) error {
	body, err := json.Marshal(claim)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("mail/claim"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// DeleteRecord deletes one record by identifier.
func (c *Client) DeleteRecord(ctx context.Context, resource, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint(resource, id), nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// UpdateRecord replaces one record by identifier.
func (c *Client) UpdateRecord(ctx context.Context, resource, id string, doc model.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint(resource, id), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// do attaches the session token, executes the request, and maps non-2xx
// statuses to ErrRequestFailed.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	c.token.Attach(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, model.WrapError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s %s returned %d", model.ErrRequestFailed, req.Method, req.URL.Path, resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		if strings.Contains(p, "/") {
			escaped[i] = p // already a path
		} else {
			escaped[i] = url.PathEscape(p)
		}
	}
	return c.origin + "/" + strings.Join(escaped, "/")
}

// Package remote is the HTTP client for the authoritative catalogue server.
// Every call is a single attempt; retry policy belongs to the caller.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"catalog-sync/internal/config"
	"catalog-sync/internal/model"

	"github.com/rs/zerolog"
)

// maxErrorBody bounds how much of an error response is kept for diagnostics.
const maxErrorBody = 512

// Client talks to the /api/{kind} endpoints of the catalogue server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

// New creates a client for the server described by cfg.
func New(cfg config.RemoteConfig, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With().Str("component", "remote").Logger(),
	}
}

// Insert posts rec. The server replaces any row with the same ID.
func (c *Client) Insert(ctx context.Context, rec model.Record) error {
	return c.send(ctx, "insert", rec.Kind(), http.MethodPost, c.collectionURL(rec.Kind()), rec)
}

// Update overwrites the remote row with rec's ID. A missing row is a 404 *Error.
func (c *Client) Update(ctx context.Context, rec model.Record) error {
	return c.send(ctx, "update", rec.Kind(), http.MethodPut, c.itemURL(rec.Kind(), rec.Meta().ID), rec)
}

// Delete removes the remote row with id. Deleting a missing row succeeds.
func (c *Client) Delete(ctx context.Context, kind model.Kind, id string) error {
	return c.send(ctx, "delete", kind, http.MethodDelete, c.itemURL(kind, id), nil)
}

// FetchAll returns every remote row of kind.
func (c *Client) FetchAll(ctx context.Context, kind model.Kind) ([]model.Record, error) {
	return c.fetch(ctx, "fetch", kind, c.collectionURL(kind))
}

// FetchFiltered returns remote rows of kind whose field equals value.
func (c *Client) FetchFiltered(ctx context.Context, kind model.Kind, field, value string) ([]model.Record, error) {
	u := c.collectionURL(kind) + "?" + url.Values{field: {value}}.Encode()
	return c.fetch(ctx, "fetch", kind, u)
}

func (c *Client) collectionURL(kind model.Kind) string {
	return c.baseURL + "/api/" + string(kind)
}

func (c *Client) itemURL(kind model.Kind, id string) string {
	return c.collectionURL(kind) + "/" + url.PathEscape(id)
}

func (c *Client) send(ctx context.Context, op string, kind model.Kind, method, u string, payload any) error {
	resp, err := c.do(ctx, method, u, payload)
	if err != nil {
		return &Error{Op: op, Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return &Error{Op: op, Kind: kind, StatusCode: resp.StatusCode, Err: err}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) fetch(ctx context.Context, op string, kind model.Kind, u string) ([]model.Record, error) {
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &Error{Op: op, Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, &Error{Op: op, Kind: kind, StatusCode: resp.StatusCode, Err: err}
	}

	recs, err := decodeRecords(kind, resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Kind: kind, StatusCode: resp.StatusCode, Err: err}
	}

	c.logger.Debug().Str("kind", string(kind)).Int("count", len(recs)).Msg("fetched remote rows")
	return recs, nil
}

func (c *Client) do(ctx context.Context, method, u string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.http.Do(req)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var er model.ErrorResponse
	if json.Unmarshal(msg, &er) == nil && er.Error != "" {
		if er.Message != "" {
			return fmt.Errorf("%s: %s", er.Error, er.Message)
		}
		return fmt.Errorf("%s", er.Error)
	}
	return fmt.Errorf("%s", bytes.TrimSpace(msg))
}

func decodeRecords(kind model.Kind, r io.Reader) ([]model.Record, error) {
	dec := json.NewDecoder(r)

	switch kind {
	case model.KindCategory:
		var categories []model.Category
		if err := dec.Decode(&categories); err != nil {
			return nil, fmt.Errorf("failed to decode categories: %w", err)
		}
		recs := make([]model.Record, len(categories))
		for i := range categories {
			recs[i] = &categories[i]
		}
		return recs, nil
	case model.KindProduct:
		var products []model.Product
		if err := dec.Decode(&products); err != nil {
			return nil, fmt.Errorf("failed to decode products: %w", err)
		}
		recs := make([]model.Record, len(products))
		for i := range products {
			recs[i] = &products[i]
		}
		return recs, nil
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
}

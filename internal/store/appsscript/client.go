// Package appsscript talks to a spreadsheet published through a script web
// app: GET returns {"data":[{...}]}, POST appends one form-encoded row.
// The endpoint has no filtering and no deletion.
package appsscript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"topicspin-api/internal/models"
	"topicspin-api/internal/store"
)

// ManualFallback is the notice attached to unsupported admin operations.
const ManualFallback = "the spreadsheet web app cannot delete rows; delete them directly in the sheet"

type Client struct {
	url string
	hc  *http.Client
}

var (
	_ store.Store   = (*Client)(nil)
	_ store.Deleter = (*Client)(nil)
)

func New(endpoint string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{url: endpoint, hc: hc}
}

type listResponse struct {
	Data []map[string]any `json:"data"`
}

func (c *Client) FetchAll(ctx context.Context) ([]models.Assignment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("fetch: status %d", resp.StatusCode)
	}

	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("fetch: decode: %w", err)
	}
	if body.Data == nil {
		return nil, errors.New("fetch: response missing data array")
	}

	out := make([]models.Assignment, 0, len(body.Data))
	for _, item := range body.Data {
		rec := toRecord(item)
		if rec.Empty() {
			continue
		}
		if a, ok := store.DecodeRecord(rec); ok {
			out = append(out, a)
		}
	}
	log.Debug().Int("rows", len(out)).Msg("appsscript fetch")
	return out, nil
}

// Append posts every wire field, generating id and timestamp when missing.
// The returned id is the one sent; the endpoint does not assign its own.
func (c *Client) Append(ctx context.Context, a models.Assignment) (string, error) {
	rec := store.EncodeRecord(a)
	form := url.Values{}
	for _, f := range store.Fields {
		form.Set(f, rec[f])
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("append: status %d", resp.StatusCode)
	}
	// A body that is not JSON usually means the script failed after or
	// before writing; the caller cannot tell which.
	var ack map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&ack); err != nil {
		return "", fmt.Errorf("append: decode ack: %w", err)
	}
	return rec[store.FieldID], nil
}

func (c *Client) Delete(context.Context, string) error {
	return fmt.Errorf("%w: %s", store.ErrUnsupported, ManualFallback)
}

func (c *Client) Clear(context.Context) error {
	return fmt.Errorf("%w: %s", store.ErrUnsupported, ManualFallback)
}

func toRecord(item map[string]any) store.Record {
	rec := store.Record{}
	for _, f := range store.Fields {
		rec[f] = stringify(item[f])
	}
	return rec
}

// stringify renders sheet cells; numeric cells arrive as JSON numbers.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// Package remote implements the adapter over a hosted record store that speaks
// the Airtable REST dialect: one table per entity, bearer-token auth,
// filterByFormula predicates and offset pagination.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/frahmantamala/ops-portal/internal/store"
)

const (
	tableUsers           = "Users"
	tableEmployees       = "Employees"
	tableTools           = "ToolsRegistry"
	tableToolRequests    = "ToolRequests"
	tableToolPayments    = "ToolPayments"
	tableLeaveRequests   = "LeaveRequests"
	tableExpenses        = "Expenses"
	tableSalaryTransfers = "SalaryTransfers"
	tableAuditLogs       = "AuditLogs"
)

const DefaultBaseURL = "https://api.airtable.com/v0"

type Config struct {
	BaseURL        string
	BaseID         string
	Token          string
	WritableTables []string
	Timeout        time.Duration
	HTTPClient     *http.Client
}

type Adapter struct {
	baseURL    string
	baseID     string
	token      string
	httpClient *http.Client
	writable   map[string]bool
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

var _ store.Adapter = (*Adapter)(nil)

func NewAdapter(cfg Config, logger *slog.Logger, newID func() string) *Adapter {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	writable := make(map[string]bool, len(cfg.WritableTables))
	for _, t := range cfg.WritableTables {
		writable[strings.ToLower(strings.TrimSpace(t))] = true
	}

	return &Adapter{
		baseURL:    baseURL,
		baseID:     cfg.BaseID,
		token:      cfg.Token,
		httpClient: httpClient,
		writable:   writable,
		logger:     logger,
		now:        time.Now,
		newID:      newID,
	}
}

func (a *Adapter) Variant() store.Variant { return store.VariantRemote }

type record struct {
	ID          string          `json:"id"`
	Fields      json.RawMessage `json:"fields"`
	CreatedTime string          `json:"createdTime,omitempty"`
}

type listResponse struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

type writeRequest struct {
	Fields   any  `json:"fields"`
	Typecast bool `json:"typecast"`
}

type apiErrorBody struct {
	Error json.RawMessage `json:"error"`
}

func (a *Adapter) ensureWritable(op, table string) error {
	if !a.writable[strings.ToLower(table)] {
		return store.NotImplemented(op, table)
	}
	return nil
}

// list fetches every page of a table, following the offset cursor unless
// maxRecords caps the result.
func (a *Adapter) list(ctx context.Context, op, table string, query url.Values) ([]record, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}

	var out []record
	for {
		var page listResponse
		if err := a.do(ctx, op, http.MethodGet, table, "", q, nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Records...)

		if page.Offset == "" || q.Get("maxRecords") != "" {
			break
		}
		q.Set("offset", page.Offset)
	}
	return out, nil
}

func (a *Adapter) create(ctx context.Context, op, table string, fields any) (*record, error) {
	if err := a.ensureWritable(op, table); err != nil {
		return nil, err
	}
	var rec record
	if err := a.do(ctx, op, http.MethodPost, table, "", nil, writeRequest{Fields: fields, Typecast: true}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// patch updates the record whose keyField equals key.
func (a *Adapter) patch(ctx context.Context, op, table, keyField, key string, fields map[string]any) error {
	if err := a.ensureWritable(op, table); err != nil {
		return err
	}
	recordID, err := a.findRecordID(ctx, op, table, keyField, key)
	if err != nil {
		return err
	}
	return a.do(ctx, op, http.MethodPatch, table, recordID, nil, writeRequest{Fields: fields, Typecast: true}, nil)
}

func (a *Adapter) findRecordID(ctx context.Context, op, table, field, value string) (string, error) {
	recs, err := a.list(ctx, op, table, byField(field, value))
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		return "", store.NotFound(op, table, value)
	}
	return recs[0].ID, nil
}

func (a *Adapter) do(ctx context.Context, op, method, table, recordID string, query url.Values, body, out any) error {
	endpoint := fmt.Sprintf("%s/%s/%s", a.baseURL, url.PathEscape(a.baseID), url.PathEscape(table))
	if recordID != "" {
		endpoint += "/" + url.PathEscape(recordID)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return store.Rejected(op, table, fmt.Errorf("encode body: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return store.Rejected(op, table, err)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := a.now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.WarnContext(ctx, "record store request failed",
			"op", op,
			"table", table,
			"method", method,
			"error", err)
		return store.Unavailable(op, table, err)
	}
	defer resp.Body.Close()

	a.logger.DebugContext(ctx, "record store request",
		"op", op,
		"table", table,
		"method", method,
		"status_code", resp.StatusCode,
		"duration_ms", a.now().Sub(start).Milliseconds())

	if resp.StatusCode >= 300 {
		return classifyStatus(op, table, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return store.Unavailable(op, table, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func classifyStatus(op, table string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	detail := strings.TrimSpace(string(raw))
	var body apiErrorBody
	if json.Unmarshal(raw, &body) == nil && len(body.Error) > 0 {
		detail = string(body.Error)
	}

	kind := store.ErrRejected
	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		kind = store.ErrUnavailable
	case resp.StatusCode == http.StatusNotFound:
		kind = store.ErrNotFound
	}
	return &store.OpError{Op: op, Entity: table, StatusCode: resp.StatusCode, Detail: detail, Err: kind}
}

// escapeFormula quotes a value for use inside a single-quoted formula string.
func escapeFormula(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

func byField(field, value string) url.Values {
	q := url.Values{}
	q.Set("filterByFormula", fmt.Sprintf("{%s}='%s'", field, escapeFormula(value)))
	q.Set("maxRecords", "1")
	return q
}

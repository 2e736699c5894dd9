package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/artyomia/marketingganttai/internal/model"
)

// restTimeout bounds every request to the table API.
const restTimeout = 10 * time.Second

// RESTStore talks to a PostgREST-compatible table endpoint such as the one
// Supabase exposes under /rest/v1.
type RESTStore struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewRESTStore builds a client for cfg.URL. The API key is sent both as the
// apikey header and as a bearer token.
func NewRESTStore(cfg Config) (*RESTStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rest store requires a url")
	}
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	base := strings.TrimRight(cfg.URL, "/")
	if !strings.HasSuffix(base, "/rest/v1") {
		base += "/rest/v1"
	}

	client := &http.Client{Timeout: restTimeout}
	if cfg.APIKey != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"})
		client = oauth2.NewClient(context.Background(), src)
		client.Timeout = restTimeout
	}

	return &RESTStore{
		endpoint: base + "/" + url.PathEscape(table),
		apiKey:   cfg.APIKey,
		client:   client,
	}, nil
}

// List fetches every row ordered by created_at.
func (s *RESTStore) List(ctx context.Context) ([]model.Task, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.asc")

	var records []Record
	if err := s.do(ctx, http.MethodGet, q, nil, &records); err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	return Tasks(records), nil
}

// Create inserts one row and returns it as stored.
func (s *RESTStore) Create(ctx context.Context, draft Draft) (model.Task, error) {
	var records []Record
	if err := s.do(ctx, http.MethodPost, nil, NewRecord(draft), &records); err != nil {
		return model.Task{}, fmt.Errorf("failed to create task: %w", err)
	}
	if len(records) == 0 {
		return model.Task{}, fmt.Errorf("failed to create task: empty response")
	}
	return records[0].Task(), nil
}

// Update patches the row with task.ID.
func (s *RESTStore) Update(ctx context.Context, task model.Task) (model.Task, error) {
	payload := RecordOf(task)
	payload.ID = ""

	var records []Record
	if err := s.do(ctx, http.MethodPatch, idFilter(task.ID), payload, &records); err != nil {
		return model.Task{}, fmt.Errorf("failed to update task: %w", err)
	}
	if len(records) == 0 {
		return model.Task{}, fmt.Errorf("%w: %s", ErrNotFound, task.ID)
	}
	return records[0].Task(), nil
}

// Delete removes the row with id.
func (s *RESTStore) Delete(ctx context.Context, id string) error {
	var records []Record
	if err := s.do(ctx, http.MethodDelete, idFilter(id), nil, &records); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close releases idle connections.
func (s *RESTStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func idFilter(id string) url.Values {
	q := url.Values{}
	q.Set("id", "eq."+id)
	return q
}

// do sends one request and decodes the JSON array response into out.
func (s *RESTStore) do(ctx context.Context, method string, query url.Values, body any, out any) error {
	target := s.endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("table API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

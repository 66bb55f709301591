package remote

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

	"github.com/julianstephens/habitquest/internal/constants"
	apperrors "github.com/julianstephens/habitquest/internal/errors"
	"github.com/julianstephens/habitquest/internal/models"
)

// Client talks to a Server. Failures are reported as ErrNetwork, except 404 which
// maps to ErrNotFound and 400 which maps to ErrValidation.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ Store = (*Client)(nil)

// NewClient accepts a bare host:port or a full http(s) URL.
func NewClient(addr string, httpClient *http.Client) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.RemoteRequestTimeout}
	}
	return &Client{baseURL: base, http: httpClient}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Network(op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Network(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Network(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
		msg := e.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", apperrors.ErrNotFound, msg)
		case http.StatusBadRequest:
			return apperrors.Validation("%s", msg)
		}
		return apperrors.Network(op, fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Network(op, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func (c *Client) FetchHabits(ctx context.Context) ([]models.Habit, error) {
	var hs []models.Habit
	if err := c.do(ctx, "fetch habits", http.MethodGet, "/habits", nil, &hs); err != nil {
		return nil, err
	}
	if hs == nil {
		hs = []models.Habit{}
	}
	return hs, nil
}

func (c *Client) CreateHabit(ctx context.Context, name string) (models.Habit, error) {
	var h models.Habit
	err := c.do(ctx, "create habit", http.MethodPost, "/habits", createHabitRequest{Name: name}, &h)
	return h, err
}

func (c *Client) UpdateHabit(ctx context.Context, id string, patch models.HabitPatch) (models.Habit, error) {
	var h models.Habit
	err := c.do(ctx, "update habit", http.MethodPatch, "/habits/"+url.PathEscape(id), patch, &h)
	return h, err
}

func (c *Client) DeleteHabit(ctx context.Context, id string) error {
	return c.do(ctx, "delete habit", http.MethodDelete, "/habits/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SaveDailyRecord(ctx context.Context, rec models.DailyRecord) (models.DailyRecord, error) {
	var saved models.DailyRecord
	err := c.do(ctx, "save daily record", http.MethodPost, "/records", rec, &saved)
	return saved, err
}

func (c *Client) FetchDailyRecords(ctx context.Context, start, end *time.Time) ([]models.DailyRecord, error) {
	q := url.Values{}
	if start != nil {
		q.Set("start", start.Format(time.RFC3339))
	}
	if end != nil {
		q.Set("end", end.Format(time.RFC3339))
	}
	path := "/records"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var recs []models.DailyRecord
	if err := c.do(ctx, "fetch daily records", http.MethodGet, path, nil, &recs); err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []models.DailyRecord{}
	}
	return recs, nil
}

func (c *Client) FetchProgress(ctx context.Context) (models.UserProgress, error) {
	var p models.UserProgress
	err := c.do(ctx, "fetch progress", http.MethodGet, "/progress", nil, &p)
	return p, err
}

func (c *Client) SaveProgress(ctx context.Context, p models.UserProgress) (models.UserProgress, error) {
	var saved models.UserProgress
	err := c.do(ctx, "save progress", http.MethodPut, "/progress", p, &saved)
	return saved, err
}

func (c *Client) ClearAll(ctx context.Context) error {
	return c.do(ctx, "clear remote data", http.MethodDelete, "/data", nil, nil)
}

// Ping checks the server's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/healthz", nil, nil)
}

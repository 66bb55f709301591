package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/julianstephens/habitquest/internal/errors"
	"github.com/julianstephens/habitquest/internal/models"
)

func newTestServer(t *testing.T, opts ...ServerOption) (*Simulated, *httptest.Server, *Client) {
	t.Helper()
	sim := newTestSimulated(t)
	srv := httptest.NewServer(NewServer(sim, opts...).Handler())
	t.Cleanup(srv.Close)
	return sim, srv, NewClient(srv.URL, srv.Client())
}

func TestClientServerRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, _, client := newTestServer(t, WithRateLimit(0, 0))

	created, err := client.CreateHabit(ctx, "Stretch")
	require.NoError(t, err)
	assert.Equal(t, "id-1", created.ID)

	hs, err := client.FetchHabits(ctx)
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, "Stretch", hs[0].Name)

	streak := 3
	updated, err := client.UpdateHabit(ctx, created.ID, models.HabitPatch{Streak: &streak})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Streak)

	_, err = client.UpdateHabit(ctx, "missing", models.HabitPatch{Streak: &streak})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = client.CreateHabit(ctx, "x")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	p, err := client.SaveProgress(ctx, models.UserProgress{XP: 120})
	require.NoError(t, err)
	assert.Equal(t, models.UserProgress{XP: 120, Level: 2}, p)

	p, err = client.FetchProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 120, p.XP)

	rec, err := client.SaveDailyRecord(ctx, models.DailyRecord{ID: "r1", HabitID: created.ID, Date: epoch, XPGained: 10})
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)

	start := epoch.Add(-time.Minute)
	end := epoch.Add(time.Minute)
	recs, err := client.FetchDailyRecords(ctx, &start, &end)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	outside := epoch.Add(time.Hour)
	recs, err = client.FetchDailyRecords(ctx, &outside, nil)
	require.NoError(t, err)
	assert.Empty(t, recs)

	require.NoError(t, client.DeleteHabit(ctx, created.ID))
	require.NoError(t, client.ClearAll(ctx))
	hs, err = client.FetchHabits(ctx)
	require.NoError(t, err)
	assert.Empty(t, hs)

	assert.NoError(t, client.Ping(ctx))
}

func TestPatchDiscardsCompletedToday(t *testing.T) {
	ctx := context.Background()
	sim, srv, _ := newTestServer(t, WithRateLimit(0, 0))

	h, err := sim.CreateHabit(ctx, "Journal")
	require.NoError(t, err)

	body := `{"streak": 2, "completed_today": true, "completedToday": true}`
	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/habits/"+h.ID, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := sim.store.Get("api_habits")
	require.NoError(t, err)
	assert.NotContains(t, raw, "completed_today")
	assert.NotContains(t, raw, "completedToday")
	assert.Contains(t, raw, `"streak":2`)
}

func TestDecodeHabitPatch(t *testing.T) {
	patch, err := decodeHabitPatch(map[string]json.RawMessage{
		"streak":          json.RawMessage(`4`),
		"completed_today": json.RawMessage(`true`),
	})
	require.NoError(t, err)
	require.NotNil(t, patch.Streak)
	assert.Equal(t, 4, *patch.Streak)

	_, err = decodeHabitPatch(map[string]json.RawMessage{"streak": json.RawMessage(`{`)})
	assert.Error(t, err, "an unencodable value is rejected")

	_, err = decodeHabitPatch(map[string]json.RawMessage{"active": json.RawMessage(`"yes"`)})
	assert.Error(t, err)
}

func TestServerOfflineBackend(t *testing.T) {
	sim, _, client := newTestServer(t, WithRateLimit(0, 0))
	sim.SetOffline(true)

	_, err := client.FetchHabits(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewClient(addr, nil).FetchHabits(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
}

func TestServerRejectsBadInput(t *testing.T) {
	_, srv, _ := newTestServer(t, WithRateLimit(0, 0))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"malformed habit", http.MethodPost, "/habits", "{"},
		{"record without habit", http.MethodPost, "/records", `{"id":"r"}`},
		{"bad range", http.MethodGet, "/records?start=yesterday", ""},
		{"mistyped patch", http.MethodPatch, "/habits/h1", `{"streak": "two"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := srv.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var e errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestRateLimit(t *testing.T) {
	_, srv, _ := newTestServer(t, WithRateLimit(0.001, 2))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := srv.Client().Get(srv.URL + "/habits")
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health checks bypass the limiter")
}

func TestMetricsEndpoint(t *testing.T) {
	ctx := context.Background()
	_, srv, client := newTestServer(t, WithRateLimit(0, 0))

	_, err := client.SaveDailyRecord(ctx, models.DailyRecord{HabitID: "h", Date: epoch})
	require.NoError(t, err)
	_, err = client.FetchHabits(ctx)
	require.NoError(t, err)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "habitquest_daily_records_saved_total 1")
	assert.Contains(t, text, `habitquest_http_requests_total{method="GET",route="/habits",status="200"} 1`)
}

func TestIPLimiterSweep(t *testing.T) {
	l := newIPLimiter(1, 1)
	l.allow("10.0.0.1")
	l.allow("10.0.0.2")
	require.Equal(t, 2, l.size())

	l.sweep(time.Hour)
	assert.Equal(t, 2, l.size(), "recent visitors are kept")

	l.sweep(-time.Second)
	assert.Equal(t, 0, l.size())
}

func TestNewClientNormalizesAddr(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8787", NewClient("127.0.0.1:8787/", nil).BaseURL())
	assert.Equal(t, "https://hq.example.com", NewClient("https://hq.example.com", nil).BaseURL())
}

package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"farmsim-notifier/pkg/farmsim"

	"github.com/stretchr/testify/assert"
)

type fakePoller struct {
	err     error
	entries []farmsim.PlaytimeRecord
	polls   int
	lastTop int
}

func (p *fakePoller) UpdatePresence(context.Context) error {
	p.polls++
	return nil
}

func (p *fakePoller) UpdateSummary(context.Context) error {
	return p.err
}

func (p *fakePoller) Leaderboard(n int) []farmsim.PlaytimeRecord {
	p.lastTop = n
	if len(p.entries) > n {
		return p.entries[:n]
	}
	return p.entries
}

func newTestServer(p *fakePoller) http.Handler {
	return New(p, slog.New(slog.NewTextHandler(io.Discard, nil))).Handler()
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name   string
		method string
		want   int
	}{
		{"GET", http.MethodGet, http.StatusOK},
		{"POST", http.MethodPost, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newTestServer(&fakePoller{}).ServeHTTP(w, httptest.NewRequest(tt.method, "/health", nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestHandlePoll(t *testing.T) {
	tests := []struct {
		name   string
		method string
		err    error
		want   int
		body   string
	}{
		{name: "success", method: http.MethodPost, want: http.StatusOK, body: `{"status":"completed"}`},
		{name: "failure", method: http.MethodPost, err: errors.New("feed down"), want: http.StatusInternalServerError},
		{name: "wrong method", method: http.MethodGet, want: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePoller{err: tt.err}
			w := httptest.NewRecorder()
			newTestServer(p).ServeHTTP(w, httptest.NewRequest(tt.method, "/pollz", nil))
			assert.Equal(t, tt.want, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
				assert.Equal(t, 1, p.polls)
			}
		})
	}
}

func TestHandleLeaderboard(t *testing.T) {
	p := &fakePoller{entries: []farmsim.PlaytimeRecord{
		{Name: "Anna", Seconds: 3725},
		{Name: "Bob", Seconds: 125},
	}}
	h := newTestServer(p)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leaderboard?top=1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, p.lastTop)
	assert.JSONEq(t, `{"players":[{"name":"Anna","seconds":3725}]}`, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultTop, p.lastTop)

	for _, q := range []string{"0", "-1", "abc", "1000"} {
		w = httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leaderboard?top="+q, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, "top=%s", q)
	}

	w = httptest.NewRecorder()
	newTestServer(&fakePoller{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	assert.JSONEq(t, `{"players":[]}`, w.Body.String())
}

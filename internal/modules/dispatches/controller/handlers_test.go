package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gafc98/temperature-logger/internal/modules/dispatches/types"
)

type fakeRepository struct {
	dispatches []types.Dispatch
	err        error
	gotLimit   int
}

func (f *fakeRepository) InsertDispatch(context.Context, types.Dispatch) error { return f.err }

func (f *fakeRepository) ListDispatches(_ context.Context, limit int) ([]types.Dispatch, error) {
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.dispatches) {
		return f.dispatches[:limit], nil
	}
	return f.dispatches, nil
}

func (f *fakeRepository) GetWeekDispatches(context.Context, int, int) ([]types.Dispatch, error) {
	return nil, f.err
}

func serve(t *testing.T, repo *fakeRepository, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	NewDispatchController(repo).RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandleList(t *testing.T) {
	repo := &fakeRepository{dispatches: []types.Dispatch{
		{ID: "b", ISOYear: 2024, ISOWeek: 2, Recipients: 4, SentAt: time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)},
		{ID: "a", ISOYear: 2024, ISOWeek: 1, Recipients: 3, SentAt: time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC)},
	}}

	rec := serve(t, repo, "/api/digests?limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if repo.gotLimit != 1 {
		t.Errorf("limit = %d, want 1", repo.gotLimit)
	}
	var got []types.Dispatch
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" || got[0].ISOWeek != 2 {
		t.Errorf("body = %+v", got)
	}
}

func TestHandleList_defaultLimit(t *testing.T) {
	repo := &fakeRepository{}
	if rec := serve(t, repo, "/api/digests"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if repo.gotLimit != defaultListLimit {
		t.Errorf("limit = %d, want %d", repo.gotLimit, defaultListLimit)
	}
}

func TestHandleList_errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{name: "non numeric", target: "/api/digests?limit=abc", status: http.StatusBadRequest},
		{name: "zero", target: "/api/digests?limit=0", status: http.StatusBadRequest},
		{name: "too large", target: "/api/digests?limit=1000", status: http.StatusBadRequest},
		{name: "repository failure", target: "/api/digests", err: errors.New("db down"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, &fakeRepository{err: tt.err}, tt.target)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["error"] != http.StatusText(tt.status) || body["message"] == "" {
				t.Errorf("body = %v", body)
			}
		})
	}
}

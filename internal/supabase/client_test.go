package supabase

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/", "anon-key", "user-1", nil)
	c.sleep = func(time.Duration) {}
	return c
}

func TestNotConfigured(t *testing.T) {
	c := NewClient("", "", "", nil)
	assert.False(t, c.Configured())
	_, err := c.ListActionableItems(t.Context())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestListActionableItems(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/rest/v1/items", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "eq.true", q.Get("is_actionable"))
		assert.Equal(t, "neq.completed", q.Get("status"))
		assert.Equal(t, "created_at.asc", q.Get("order"))
		assert.Equal(t, "eq.user-1", q.Get("user_id"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"id":"a","content":"Write report","status":"active","is_actionable":true},
			{"id":"b","content":"Call dentist","status":"active","is_actionable":true}]`)
	})

	items, err := c.ListActionableItems(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"Write report", "Call dentist"}, ItemContents(items))

	_, err = c.ListActionableItems(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second listing should be served from cache")
}

func TestSavePlanInvalidatesCache(t *testing.T) {
	var gets atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			gets.Add(1)
			io.WriteString(w, `[]`)
		case http.MethodPost:
			assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
			var item Item
			require.NoError(t, json.NewDecoder(r.Body).Decode(&item))
			assert.Equal(t, ItemTypePlan, item.ItemType)
			assert.False(t, item.IsActionable)
			assert.True(t, item.AIGenerated)
			assert.Equal(t, "user-1", item.UserID)
			item.ID = "new-id"
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode([]Item{item})
		}
	})

	_, err := c.ListActionableItems(t.Context())
	require.NoError(t, err)

	created, err := c.SavePlan(t.Context(), "9:00 AM Write report")
	require.NoError(t, err)
	assert.Equal(t, "new-id", created.ID)
	assert.Equal(t, "9:00 AM Write report", created.Content)

	_, err = c.ListActionableItems(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int32(2), gets.Load())
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `[]`)
	})

	items, err := c.ListActionableItems(t.Context())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.ListActionableItems(t.Context())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, int32(4), calls.Load())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"code":"PGRST301","message":"JWT expired"}`)
	})

	_, err := c.ListActionableItems(t.Context())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "PGRST301", apiErr.Code)
	assert.Equal(t, "JWT expired", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPing(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			io.WriteString(w, `[]`)
		})
		assert.NoError(t, c.Ping(t.Context()))
	})

	t.Run("missing table still reachable", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"code":"42P01","message":"relation \"public.items\" does not exist"}`)
		})
		assert.NoError(t, c.Ping(t.Context()))
	})

	t.Run("unauthorized", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"message":"Invalid API key"}`)
		})
		assert.Error(t, c.Ping(t.Context()))
	})
}

package beeminder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Datapoints_SortedAscending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/felix/goals/pushups/datapoints.json", r.URL.Path)
		assert.Equal(t, "secret-token", r.URL.Query().Get("auth_token"))

		// Beeminder returns most recent first; the client must re-sort.
		datapoints := []map[string]any{
			{"id": "dp3", "value": 3.0, "timestamp": 300, "daystamp": "20250103", "comment": "third"},
			{"id": "dp1", "value": 1.0, "timestamp": 100, "daystamp": "20250101", "comment": "first"},
			{"id": "dp2", "value": 2.0, "timestamp": 200, "daystamp": "20250102", "comment": "second", "requestid": "req-2"},
		}
		_ = json.NewEncoder(w).Encode(datapoints)
	}))
	defer server.Close()

	client := New("felix", "secret-token", WithBaseURL(server.URL))
	datapoints, err := client.Datapoints(context.Background(), "pushups")
	require.NoError(t, err)
	require.Len(t, datapoints, 3)

	assert.Equal(t, "dp1", datapoints[0].ID)
	assert.Equal(t, "dp2", datapoints[1].ID)
	assert.Equal(t, "dp3", datapoints[2].ID)
	assert.Equal(t, time.Unix(200, 0).UTC(), datapoints[1].Timestamp)
	assert.Equal(t, "req-2", datapoints[1].RequestID)
}

func TestClient_Datapoints_AuthFailureIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":"no such token"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New("felix", "bad-token", WithBaseURL(server.URL))
	_, err := client.Datapoints(context.Background(), "pushups")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_Create(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret-token", r.PostForm.Get("auth_token"))
		assert.Equal(t, "1", r.PostForm.Get("value"))
		assert.Equal(t, "1700000000", r.PostForm.Get("timestamp"))
		assert.Equal(t, "a session", r.PostForm.Get("comment"))
		assert.Equal(t, "req-abc", r.PostForm.Get("requestid"))

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "new-dp", "value": 1.0, "timestamp": 1700000000,
			"comment": "a session", "requestid": "req-abc",
		})
	}))
	defer server.Close()

	client := New("felix", "secret-token", WithBaseURL(server.URL))
	created, err := client.Create(context.Background(), "focusmate", CreateDatapoint{
		Value:     1,
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Comment:   "a session",
		RequestID: "req-abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-dp", created.ID)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), created.Timestamp)
}

func TestClient_Create_RejectedNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"errors":{"goal":"not found"}}`, http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := New("felix", "secret-token", WithBaseURL(server.URL))
	_, err := client.Create(context.Background(), "nope", CreateDatapoint{Value: 1})
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, 1, calls)
}

func TestClient_Create_NetworkErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // immediately, so the request fails to connect

	client := New("felix", "secret-token", WithBaseURL(server.URL))
	_, err := client.Create(context.Background(), "pushups", CreateDatapoint{Value: 1})
	assert.ErrorIs(t, err, ErrUnavailable)
}

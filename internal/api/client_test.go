package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mailtrack/internal/config"
	"mailtrack/pkg/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.APIConfig{Origin: srv.URL, Timeout: 5})
}

func TestFetchCollection(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/mail", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"data": []map[string]any{
				{"id": "M1", "status": "pending"},
				{"id": "M2", "status": "claimed"},
			},
		})
	})

	docs, err := c.FetchCollection(context.Background(), "mail")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "M1", docs[0].GetID())
	assert.Equal(t, model.StatusClaimed, docs[1].GetStatus())
}

func TestFetchCollection_Non2xx(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.FetchCollection(context.Background(), "mail")
	assert.ErrorIs(t, err, model.ErrRequestFailed)
}

func TestSubmitClaim_SendsFullPayload(t *testing.T) {
	var got ClaimRequest
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/mail/claim", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated) // any 2xx is success
	})

	claim := ClaimRequest{
		Identifiers:     []string{"M1", "M2"},
		BranchCode:      "BR-01",
		ReferenceNumber: "REF-20260830-101500",
		PersonName:      "Jane",
		IDNumber:        "123",
		Status:          "claimed",
	}
	require.NoError(t, c.SubmitClaim(context.Background(), claim))
	assert.Equal(t, claim, got)
}

func TestSubmitClaim_FailureIsGeneric(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Structured per-field server validation is not consumed
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"fieldErrors":{"personName":"taken"}}`))
	})

	err := c.SubmitClaim(context.Background(), ClaimRequest{})
	assert.ErrorIs(t, err, model.ErrRequestFailed)
}

func TestDeleteAndUpdateRecord(t *testing.T) {
	var method, path string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
	})

	require.NoError(t, c.DeleteRecord(context.Background(), "mail", "M1"))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/mail/M1", path)

	require.NoError(t, c.UpdateRecord(context.Background(), "branches", "B1", model.Document{"id": "B1"}))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/branches/B1", path)
}

func TestRequestCancellation(t *testing.T) {
	blocked := make(chan struct{})
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	})
	defer close(blocked)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := c.FetchCollection(ctx, "mail")
	assert.ErrorIs(t, err, model.ErrCanceled)
}

func TestTokenHolder_AttachesBearer(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"status": "ok", "data": []any{}})
	}))
	defer srv.Close()

	c := NewClient(config.APIConfig{Origin: srv.URL, Timeout: 5, Token: "session-token"})
	_, err := c.FetchCollection(context.Background(), "mail")
	require.NoError(t, err)
	assert.Equal(t, "Bearer session-token", auth)
}

func TestTokenHolder_NoTokenNoHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	NewTokenHolder("").Attach(req)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestIsExpired(t *testing.T) {
	now := time.Now()

	signed := func(exp time.Time) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()})
		s, err := tok.SignedString([]byte("test-secret"))
		require.NoError(t, err)
		return s
	}

	assert.True(t, isExpired(signed(now.Add(-time.Hour)), now))
	assert.False(t, isExpired(signed(now.Add(time.Hour)), now))
	// Opaque tokens carry no readable expiry
	assert.False(t, isExpired("not-a-jwt", now))
}

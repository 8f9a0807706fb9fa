package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteVerifier_Verify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			_, _ = w.Write([]byte(`{"id":"user-123","aud":"authenticated","email":"a@example.com"}`))
		case "Bearer empty":
			_, _ = w.Write([]byte(`{}`))
		case "Bearer broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":401,"msg":"invalid JWT"}`))
		}
	}))
	defer server.Close()

	verifier := NewRemoteVerifier(server.URL+"/", "anon-key", 5*time.Second)
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		userID, err := verifier.Verify(ctx, "good")
		require.NoError(t, err)
		assert.Equal(t, "user-123", userID)
	})

	t.Run("rejected token", func(t *testing.T) {
		_, err := verifier.Verify(ctx, "bad")
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Contains(t, err.Error(), "invalid JWT")
	})

	t.Run("no user in response", func(t *testing.T) {
		_, err := verifier.Verify(ctx, "empty")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("auth service failure", func(t *testing.T) {
		_, err := verifier.Verify(ctx, "broken")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidToken)
		assert.Contains(t, err.Error(), "500")
	})
}

func TestRemoteVerifier_Unreachable(t *testing.T) {
	verifier := NewRemoteVerifier("http://127.0.0.1:1", "anon-key", time.Second)

	_, err := verifier.Verify(context.Background(), "token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

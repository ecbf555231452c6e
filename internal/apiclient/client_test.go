package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/onairos/onairos-go/internal/session"
	"github.com/onairos/onairos-go/pkg/api"
)

func newTestClient(t *testing.T, server *httptest.Server, store session.Store) *Client {
	t.Helper()
	client, err := New(Config{
		BaseURL:  server.URL,
		Sessions: store,
		Retry:    RetryPolicy{MaxAttempts: 3, Delay: 0},
	})
	require.NoError(t, err)
	return client
}

func storeWithToken(t *testing.T, expiry time.Time) session.Store {
	t.Helper()
	store := session.NewInMemoryStore()
	require.NoError(t, store.SaveCredentials(context.Background(), session.Credentials{
		Username:    "gopher",
		BearerToken: "tok",
		TokenExpiry: expiry,
	}))
	return store
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, api.ErrInvalidConfig)

	_, err = New(Config{BaseURL: "not a url"})
	require.ErrorIs(t, err, api.ErrInvalidConfig)
}

// flakyTransport fails the first n exchanges at the transport level, then
// delegates to the real transport.
type flakyTransport struct {
	failures int32
	inner    http.RoundTripper
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return nil, &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	}
	return f.inner.RoundTrip(req)
}

func TestDo_RetriesTransportFailures(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_ = json.NewEncoder(w).Encode(map[string]bool{"exists": true})
	}))
	defer server.Close()

	client, err := New(Config{
		BaseURL: server.URL,
		Retry:   RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond},
		HTTPClient: &http.Client{
			Transport: &flakyTransport{failures: 2, inner: http.DefaultTransport},
		},
	})
	require.NoError(t, err)

	var out struct {
		Exists bool `json:"exists"`
	}
	require.NoError(t, client.do(context.Background(), http.MethodGet, "/account/exists", nil, &out, ""))
	require.True(t, out.Exists)
	require.EqualValues(t, 1, atomic.LoadInt32(&hits), "only the final attempt reaches the server")
}

func TestDo_ExhaustedRetriesClassifyTransport(t *testing.T) {
	client, err := New(Config{
		BaseURL: "http://127.0.0.1:1", // nothing listens here
		Retry:   RetryPolicy{MaxAttempts: 2, Delay: 0},
	})
	require.NoError(t, err)

	err = client.do(context.Background(), http.MethodGet, "/account/exists", nil, nil, "")
	require.ErrorIs(t, err, api.ErrNetworkUnavailable)
}

func TestDo_StatusErrorsAreNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"backend exploded"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	err := client.do(context.Background(), http.MethodGet, "/x", nil, nil, "")

	e, ok := api.AsError(err)
	require.True(t, ok)
	require.Equal(t, "SERVER_ERROR", e.Code)
	require.Equal(t, "backend exploded", e.Message)
	require.EqualValues(t, 1, atomic.LoadInt32(&hits), "HTTP status failures must not retry")
}

func TestDo_UnauthorizedMapsToInvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	err := client.do(context.Background(), http.MethodGet, "/x", nil, nil, "tok")
	require.ErrorIs(t, err, api.ErrInvalidCredentials)
}

func TestGetAuthorizationURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/linkedin/authorize", r.URL.Path)
		require.Equal(t, "user@test.com", r.URL.Query().Get("email"))
		// Legacy field name, no success field.
		_, _ = w.Write([]byte(`{"url":"https://provider.example/auth"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	resp, err := client.GetAuthorizationURL(context.Background(), api.PlatformLinkedIn, "user@test.com")
	require.NoError(t, err)
	require.Equal(t, "https://provider.example/auth", resp.Target())
	require.True(t, resp.Succeeded(), "missing success field defaults to true")
}

func TestGetAuthorizationURL_ExplicitFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"platform disabled"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	_, err := client.GetAuthorizationURL(context.Background(), api.PlatformReddit, "")

	e, ok := api.AsError(err)
	require.True(t, ok)
	require.Equal(t, api.CategoryAPI, e.Category)
	require.Equal(t, "platform disabled", e.Message)
}

func TestVerifyEmailCode_ExplicitExpiry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
			Code  string `json:"code"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "user@test.com", req.Email)
		require.Equal(t, "123456", req.Code)
		_, _ = w.Write([]byte(`{"username":"gopher","token":"opaque-tok","expires_in":3600}`))
	}))
	defer server.Close()

	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	client, err := New(Config{
		BaseURL: server.URL,
		Now:     func() time.Time { return issued },
	})
	require.NoError(t, err)

	creds, err := client.VerifyEmailCode(context.Background(), "user@test.com", "123456")
	require.NoError(t, err)
	require.Equal(t, "gopher", creds.Username)
	require.Equal(t, "user@test.com", creds.Email)
	require.Equal(t, "opaque-tok", creds.BearerToken)
	require.True(t, issued.Add(time.Hour).Equal(creds.TokenExpiry))
}

func TestVerifyEmailCode_MissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"username":"gopher"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	_, err := client.VerifyEmailCode(context.Background(), "user@test.com", "123456")

	e, ok := api.AsError(err)
	require.True(t, ok)
	require.Equal(t, api.CategoryAPI, e.Category)
}

func TestCheckExistingAccount_FailOpen(t *testing.T) {
	t.Run("no stored session means no network call", func(t *testing.T) {
		var hits int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
		}))
		defer server.Close()

		client := newTestClient(t, server, session.NewInMemoryStore())
		require.False(t, client.CheckExistingAccount(context.Background()))
		require.EqualValues(t, 0, atomic.LoadInt32(&hits))
	})

	t.Run("server failure reads as no account", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newTestClient(t, server, storeWithToken(t, time.Now().Add(time.Hour)))
		require.False(t, client.CheckExistingAccount(context.Background()))
	})

	t.Run("existing account with live session", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"exists":true}`))
		}))
		defer server.Close()

		client := newTestClient(t, server, storeWithToken(t, time.Now().Add(time.Hour)))
		require.True(t, client.CheckExistingAccount(context.Background()))
	})
}

func TestSubmitPIN_StaleTokenFailsFastWithoutNetwork(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	store := storeWithToken(t, time.Now().Add(-time.Minute))
	client := newTestClient(t, server, store)

	_, err := client.SubmitPIN(context.Background(), PINSubmissionRequest{Username: "gopher", PIN: "Secure1!"})
	require.ErrorIs(t, err, api.ErrTokenExpired)
	require.EqualValues(t, 0, atomic.LoadInt32(&hits), "stale token must not reach the network")

	// The stale credential was cleared proactively.
	_, ok, storeErr := store.Credentials(context.Background())
	require.NoError(t, storeErr)
	require.False(t, ok)
}

func TestSubmitPIN(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/store-pin/mobile", r.URL.Path)
		var req PINSubmissionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "gopher", req.Username)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, storeWithToken(t, time.Now().Add(time.Hour)))
	_, err := client.SubmitPIN(context.Background(), PINSubmissionRequest{Username: "gopher", PIN: "Secure1!"})
	require.NoError(t, err)
}

func TestTrainingStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/training/status", r.URL.Path)
		_, _ = w.Write([]byte(`{"progress":0.4,"disliked_interactions":12,"completed":false}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, storeWithToken(t, time.Now().Add(time.Hour)))
	status, err := client.TrainingStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0.4, status.Progress)
	require.Equal(t, 12, status.DislikedInteractions)
	require.False(t, status.Completed)
}

func TestClassifyTransport(t *testing.T) {
	require.ErrorIs(t, classifyTransport(context.DeadlineExceeded), api.ErrRequestTimeout)
	require.ErrorIs(t, classifyTransport(context.Canceled), api.ErrNetworkFailure)
	require.ErrorIs(t, classifyTransport(&net.OpError{Op: "dial", Err: errors.New("refused")}), api.ErrNetworkUnavailable)
	require.ErrorIs(t, classifyTransport(errors.New("mystery")), api.ErrNetworkFailure)
}

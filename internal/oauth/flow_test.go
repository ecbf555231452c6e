package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onairos/onairos-go/internal/apiclient"
	"github.com/onairos/onairos-go/pkg/api"
)

// scriptedSurface replays a fixed event sequence and records the URL it was
// asked to open.
type scriptedSurface struct {
	mu     sync.Mutex
	opened string
	events []api.BrowserEvent
}

func (s *scriptedSurface) Open(ctx context.Context, rawURL string) (<-chan api.BrowserEvent, error) {
	s.mu.Lock()
	s.opened = rawURL
	s.mu.Unlock()

	ch := make(chan api.BrowserEvent, len(s.events))
	for _, ev := range s.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (s *scriptedSurface) openedURL(t *testing.T) *url.URL {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := url.Parse(s.opened)
	require.NoError(t, err)
	return u
}

// noticeRecorder captures observer notices.
type noticeRecorder struct {
	api.NoopObserver
	mu      sync.Mutex
	notices []api.Notice
}

func (r *noticeRecorder) OnNotice(ctx context.Context, n api.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) all() []api.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.Notice(nil), r.notices...)
}

func navEvent(t *testing.T, raw string) api.BrowserEvent {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return api.BrowserEvent{Kind: api.BrowserNavigated, URL: u}
}

func newTestFlow(t *testing.T, backendURL string, obs api.Observer) *Flow {
	t.Helper()
	client, err := apiclient.New(apiclient.Config{
		BaseURL: backendURL,
		Retry:   apiclient.RetryPolicy{MaxAttempts: 1},
	})
	require.NoError(t, err)

	return NewFlow(Config{
		Client:    client,
		URLScheme: "onairos",
		Observer:  obs,
		NewState:  func() string { return "state-123" },
	})
}

func authURLServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Server-generated state gets overridden by the attempt's nonce.
		_, _ = w.Write([]byte(`{"authorization_url":"https://provider.example/auth?state=server-state"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestConnect_SchemeCallbackSuccess(t *testing.T) {
	server := authURLServer(t)
	surface := &scriptedSurface{events: []api.BrowserEvent{
		navEvent(t, "https://provider.example/login"),
		navEvent(t, "onairos://oauth/callback?code=auth-code-1&state=state-123"),
	}}

	flow := newTestFlow(t, server.URL, nil)
	res, err := flow.Connect(context.Background(), surface, api.PlatformLinkedIn, "user@test.com", "gopher")
	require.NoError(t, err)
	require.Equal(t, api.PlatformLinkedIn, res.Platform)
	require.Equal(t, "auth-code-1", res.AuthCode)
	require.Empty(t, res.AccessToken)
	require.False(t, res.ConnectedAt.IsZero())

	// The attempt's nonce replaced the server-generated state.
	opened := surface.openedURL(t)
	require.Equal(t, "state-123", opened.Query().Get("state"))
}

func TestConnect_SuccessLanding(t *testing.T) {
	server := authURLServer(t)
	surface := &scriptedSurface{events: []api.BrowserEvent{
		navEvent(t, "https://provider.example/consent"),
		navEvent(t, "https://api.onairos.uk/oauth/success"),
	}}

	flow := newTestFlow(t, server.URL, nil)
	res, err := flow.Connect(context.Background(), surface, api.PlatformReddit, "", "")
	require.NoError(t, err)
	require.Empty(t, res.AuthCode)
	require.True(t, strings.HasPrefix(res.AccessToken, "onairos_reddit_"),
		"synthetic token %q", res.AccessToken)
}

func TestConnect_StateMismatchRejected(t *testing.T) {
	server := authURLServer(t)
	surface := &scriptedSurface{events: []api.BrowserEvent{
		navEvent(t, "onairos://oauth/callback?code=auth-code-1&state=forged"),
	}}

	flow := newTestFlow(t, server.URL, nil)
	_, err := flow.Connect(context.Background(), surface, api.PlatformLinkedIn, "", "")
	require.ErrorIs(t, err, api.ErrProviderAuthFailed)
}

func TestConnect_ProviderError(t *testing.T) {
	server := authURLServer(t)
	surface := &scriptedSurface{events: []api.BrowserEvent{
		navEvent(t, "onairos://oauth/callback?error=access_denied&error_description=nope&state=state-123"),
	}}

	flow := newTestFlow(t, server.URL, nil)
	_, err := flow.Connect(context.Background(), surface, api.PlatformLinkedIn, "", "")
	require.ErrorIs(t, err, api.ErrProviderAuthFailed)
}

func TestConnect_UserCloses(t *testing.T) {
	server := authURLServer(t)

	t.Run("explicit close event", func(t *testing.T) {
		surface := &scriptedSurface{events: []api.BrowserEvent{
			navEvent(t, "https://provider.example/login"),
			{Kind: api.BrowserClosed},
		}}
		flow := newTestFlow(t, server.URL, nil)
		_, err := flow.Connect(context.Background(), surface, api.PlatformGmail, "", "")
		require.ErrorIs(t, err, api.ErrUserCancelled)
	})

	t.Run("channel closes without a terminal signal", func(t *testing.T) {
		surface := &scriptedSurface{}
		flow := newTestFlow(t, server.URL, nil)
		_, err := flow.Connect(context.Background(), surface, api.PlatformGmail, "", "")
		require.ErrorIs(t, err, api.ErrUserCancelled)
	})
}

func TestConnect_ContextCancelled(t *testing.T) {
	server := authURLServer(t)

	// A surface that never reports anything.
	silent := surfaceFunc(func(ctx context.Context, rawURL string) (<-chan api.BrowserEvent, error) {
		return make(chan api.BrowserEvent), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	flow := newTestFlow(t, server.URL, nil)
	_, err := flow.Connect(ctx, silent, api.PlatformLinkedIn, "", "")
	require.ErrorIs(t, err, api.ErrUserCancelled)
}

type surfaceFunc func(ctx context.Context, rawURL string) (<-chan api.BrowserEvent, error)

func (f surfaceFunc) Open(ctx context.Context, rawURL string) (<-chan api.BrowserEvent, error) {
	return f(ctx, rawURL)
}

func TestConnect_LoadFailureNotifies(t *testing.T) {
	server := authURLServer(t)
	recorder := &noticeRecorder{}
	surface := &scriptedSurface{events: []api.BrowserEvent{
		{Kind: api.BrowserLoadFailed, Err: errors.New("dns failure")},
	}}

	flow := newTestFlow(t, server.URL, recorder)
	_, err := flow.Connect(context.Background(), surface, api.PlatformLinkedIn, "", "")
	require.ErrorIs(t, err, api.ErrNetworkFailure)

	notices := recorder.all()
	require.Len(t, notices, 1)
	require.Equal(t, api.NoticeError, notices[0].Kind)
	require.Positive(t, notices[0].AutoDismiss, "load-failure notices auto-dismiss")
}

func TestConnect_FallbackURLWhenBackendFails(t *testing.T) {
	surface := &scriptedSurface{events: []api.BrowserEvent{
		{Kind: api.BrowserClosed},
	}}

	// Nothing listens here; the authorization-URL lookup fails and the
	// locally constructed fallback is used instead.
	flow := newTestFlow(t, "http://127.0.0.1:1", nil)
	_, err := flow.Connect(context.Background(), surface, api.PlatformLinkedIn, "user@test.com", "gopher")
	require.ErrorIs(t, err, api.ErrUserCancelled)

	opened := surface.openedURL(t)
	require.Contains(t, opened.Path, "/linkedin/authorize")
	q := opened.Query()
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "onairos://oauth/callback", q.Get("redirect_uri"))
	require.Equal(t, "state-123", q.Get("state"))
	require.Equal(t, "user@test.com", q.Get("email"))
}

func TestConnect_NilSurface(t *testing.T) {
	server := authURLServer(t)
	flow := newTestFlow(t, server.URL, nil)
	_, err := flow.Connect(context.Background(), nil, api.PlatformLinkedIn, "", "")
	require.ErrorIs(t, err, api.ErrNoSurface)
}

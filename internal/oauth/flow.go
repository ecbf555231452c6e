// Package oauth drives the browser-based platform linking sub-flow: fetch
// an authorization URL, walk the redirect sequence on a host-provided
// browser surface, and turn the terminal signal into a platform credential
// or a classified failure.
package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/onairos/onairos-go/internal/apiclient"
	"github.com/onairos/onairos-go/pkg/api"
)

// Phase is the per-attempt state of the sub-flow.
type Phase string

const (
	PhaseIdle            Phase = "IDLE"
	PhaseFetchingAuthURL Phase = "FETCHING_AUTH_URL"
	PhaseLoadingBrowser  Phase = "LOADING_BROWSER"
	PhaseSucceeded       Phase = "SUCCEEDED"
	PhaseFailed          Phase = "FAILED"
	PhaseCancelled       Phase = "CANCELLED"
)

// noticeDismiss bounds how long a load-failure indicator stays on screen
// before auto-dismissing, so the user is never stranded on a dead page.
const noticeDismiss = 3 * time.Second

// defaultScopes are requested when constructing the local fallback URL.
var defaultScopes = map[api.Platform]string{
	api.PlatformLinkedIn:  "r_liteprofile r_emailaddress",
	api.PlatformReddit:    "identity history",
	api.PlatformPinterest: "boards:read pins:read",
	api.PlatformInstagram: "user_profile user_media",
	api.PlatformGmail:     "https://mail.google.com/ readonly",
}

// Config describes how to construct a Flow.
type Config struct {
	Client *apiclient.Client

	// URLScheme is the app's custom callback scheme (without "://").
	URLScheme string

	// SuccessPath is the https landing path treated as terminal success.
	// Defaults to "/oauth/success".
	SuccessPath string

	Observer api.Observer
	Logger   *slog.Logger

	// NewState overrides anti-replay nonce generation; mainly for tests.
	NewState func() string
}

// Flow runs platform connect attempts. It holds no per-attempt state and is
// safe for sequential reuse across platforms; each Connect call is one
// attempt with its own nonce and phase progression.
type Flow struct {
	client      *apiclient.Client
	scheme      string
	successPath string
	observer    api.Observer
	logger      *slog.Logger
	newState    func() string
}

// Result is a successful connect attempt. Exactly one of AuthCode and
// AccessToken is set: a scheme callback yields the provider's code, while
// the success landing yields a synthetic opaque token.
type Result struct {
	Platform    api.Platform
	AuthCode    string
	AccessToken string
	ConnectedAt time.Time
}

// NewFlow creates a Flow from cfg.
func NewFlow(cfg Config) *Flow {
	successPath := cfg.SuccessPath
	if successPath == "" {
		successPath = "/oauth/success"
	}
	observer := cfg.Observer
	if observer == nil {
		observer = api.NoopObserver{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newState := cfg.NewState
	if newState == nil {
		newState = func() string { return uuid.NewString() }
	}
	return &Flow{
		client:      cfg.Client,
		scheme:      cfg.URLScheme,
		successPath: successPath,
		observer:    observer,
		logger:      logger,
		newState:    newState,
	}
}

// Connect runs one platform connect attempt on the given surface. The error
// is always a classified *api.Error; user cancellation returns
// api.ErrUserCancelled and must not be retried automatically.
func (f *Flow) Connect(ctx context.Context, surface api.BrowserSurface, platform api.Platform, email, username string) (Result, error) {
	if surface == nil {
		return Result{}, api.ErrNoSurface
	}

	state := f.newState()
	phase := PhaseFetchingAuthURL
	f.logPhase(platform, phase)

	target, err := f.authorizationURL(ctx, platform, email, username, state)
	if err != nil {
		f.logPhase(platform, PhaseFailed)
		return Result{}, err
	}

	phase = PhaseLoadingBrowser
	f.logPhase(platform, phase)

	events, openErr := surface.Open(ctx, target)
	if openErr != nil {
		f.loadFailure(ctx, platform, openErr)
		return Result{}, api.ErrNetworkFailure.WithCause(openErr)
	}

	for {
		select {
		case <-ctx.Done():
			f.logPhase(platform, PhaseCancelled)
			return Result{}, api.ErrUserCancelled.WithCause(ctx.Err())

		case ev, ok := <-events:
			if !ok {
				// Surface went away without a terminal signal; the user's
				// dismissal is the only way that happens.
				f.logPhase(platform, PhaseCancelled)
				return Result{}, api.ErrUserCancelled
			}

			switch ev.Kind {
			case api.BrowserClosed:
				f.logPhase(platform, PhaseCancelled)
				return Result{}, api.ErrUserCancelled

			case api.BrowserLoadFailed:
				f.loadFailure(ctx, platform, ev.Err)
				return Result{}, api.ErrNetworkFailure.WithCause(ev.Err)

			case api.BrowserNavigated:
				if ev.URL == nil {
					continue
				}
				if res, terminal, err := f.handleNavigation(platform, state, ev.URL); terminal {
					return res, err
				}
			}
		}
	}
}

// handleNavigation checks one committed navigation for a terminal signal.
func (f *Flow) handleNavigation(platform api.Platform, state string, u *url.URL) (Result, bool, error) {
	if IsSuccessLanding(u, f.successPath) {
		f.logPhase(platform, PhaseSucceeded)
		return Result{
			Platform:    platform,
			AccessToken: syntheticToken(platform),
			ConnectedAt: time.Now(),
		}, true, nil
	}

	if !IsSchemeCallback(u, f.scheme) {
		// Intermediate provider navigation; keep waiting.
		return Result{}, false, nil
	}

	cb := ParseCallback(u)
	if cb.ErrorCode != "" {
		f.logPhase(platform, PhaseFailed)
		return Result{}, true, api.ErrProviderAuthFailed.WithCause(
			fmt.Errorf("oauth: provider error %q: %s", cb.ErrorCode, cb.ErrorDescription))
	}
	if cb.State != state {
		f.logPhase(platform, PhaseFailed)
		return Result{}, true, api.ErrProviderAuthFailed.WithCause(
			fmt.Errorf("oauth: state mismatch on callback"))
	}
	if cb.Code == "" {
		f.logPhase(platform, PhaseFailed)
		return Result{}, true, api.ErrProviderAuthFailed.WithCause(
			fmt.Errorf("oauth: callback missing authorization code"))
	}

	f.logPhase(platform, PhaseSucceeded)
	return Result{
		Platform:    platform,
		AuthCode:    cb.Code,
		ConnectedAt: time.Now(),
	}, true, nil
}

// authorizationURL resolves the redirect target. The backend lookup is
// tried first; a failure falls back to a locally constructed authorization
// request so a backend hiccup does not always block linking. Either way the
// attempt's own state nonce is carried on the final URL.
func (f *Flow) authorizationURL(ctx context.Context, platform api.Platform, email, username, state string) (string, error) {
	resp, err := f.client.GetAuthorizationURL(ctx, platform, email)
	if err == nil {
		with, werr := withState(resp.Target(), state)
		if werr == nil {
			return with, nil
		}
		err = api.UnknownError(werr)
	}

	f.logger.Debug("authorization_url_fallback",
		slog.String("platform", string(platform)),
		slog.String("error", err.Error()),
	)
	return f.fallbackURL(platform, email, username, state), nil
}

// fallbackURL builds the direct authorization request used when the backend
// lookup fails.
func (f *Flow) fallbackURL(platform api.Platform, email, username, state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("redirect_uri", f.RedirectURI())
	if scope, ok := defaultScopes[platform]; ok {
		q.Set("scope", scope)
	}
	q.Set("state", state)
	if email != "" {
		q.Set("email", email)
	}
	if username != "" {
		q.Set("username", username)
	}
	return fmt.Sprintf("%s/%s/authorize?%s", f.client.BaseURL(), url.PathEscape(string(platform)), q.Encode())
}

// RedirectURI is the app's custom-scheme callback target.
func (f *Flow) RedirectURI() string {
	return f.scheme + "://oauth/callback"
}

// withState sets the attempt's anti-replay nonce on the target URL,
// overriding any server-generated value so the callback can be verified
// locally.
func withState(target, state string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// syntheticToken is the opaque success token generated when the provider
// flow terminates on the success landing page without handing back a code.
func syntheticToken(platform api.Platform) string {
	return fmt.Sprintf("onairos_%s_%s", platform, uuid.NewString())
}

// loadFailure surfaces a transient, auto-dismissing error indicator. The
// cancel control stays interactive throughout; the notice never blocks it.
func (f *Flow) loadFailure(ctx context.Context, platform api.Platform, cause error) {
	f.logPhase(platform, PhaseFailed)
	f.observer.OnNotice(ctx, api.Notice{
		Kind:        api.NoticeError,
		Message:     "The connection page failed to load.",
		AutoDismiss: noticeDismiss,
	})
	if cause != nil {
		f.logger.Debug("browser_load_failed",
			slog.String("platform", string(platform)),
			slog.String("error", cause.Error()),
		)
	}
}

func (f *Flow) logPhase(platform api.Platform, phase Phase) {
	f.logger.Debug("oauth_phase",
		slog.String("platform", string(platform)),
		slog.String("phase", string(phase)),
	)
}

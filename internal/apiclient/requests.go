package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/onairos/onairos-go/internal/session"
	"github.com/onairos/onairos-go/pkg/api"
)

// AuthorizationURLResponse is the provider redirect target returned by the
// backend for a platform connect attempt.
type AuthorizationURLResponse struct {
	// Success defaults to true when the field is absent; older backend
	// versions omit it on the happy path.
	Success          *bool  `json:"success,omitempty"`
	AuthorizationURL string `json:"authorization_url"`
	// URL is the legacy field name; AuthorizationURL wins when both are set.
	URL     string `json:"url,omitempty"`
	Message string `json:"message,omitempty"`
}

// Target returns the redirect URL, tolerating the legacy field name.
func (r AuthorizationURLResponse) Target() string {
	if r.AuthorizationURL != "" {
		return r.AuthorizationURL
	}
	return r.URL
}

// Succeeded applies the missing-field default.
func (r AuthorizationURLResponse) Succeeded() bool {
	return r.Success == nil || *r.Success
}

// GetAuthorizationURL fetches the provider-specific redirect target for a
// platform connect attempt.
func (c *Client) GetAuthorizationURL(ctx context.Context, platform api.Platform, userEmail string) (AuthorizationURLResponse, error) {
	path := fmt.Sprintf("/%s/authorize", url.PathEscape(string(platform)))
	if userEmail != "" {
		path += "?email=" + url.QueryEscape(userEmail)
	}

	var resp AuthorizationURLResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, ""); err != nil {
		return AuthorizationURLResponse{}, err
	}
	if !resp.Succeeded() {
		return AuthorizationURLResponse{}, api.APIError(http.StatusOK, resp.Message)
	}
	if resp.Target() == "" {
		return AuthorizationURLResponse{}, api.APIError(http.StatusOK, "authorization URL missing from response")
	}
	return resp, nil
}

type verificationRequest struct {
	Email string `json:"email"`
}

// RequestVerificationCode asks the backend to email a 6-digit code.
func (c *Client) RequestVerificationCode(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/email/verify/request", verificationRequest{Email: email}, nil, "")
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type verifyCodeResponse struct {
	Success   *bool  `json:"success,omitempty"`
	Username  string `json:"username"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in,omitempty"` // seconds
	Message   string `json:"message,omitempty"`
}

// VerifyEmailCode confirms the code and returns the issued session
// credentials. Expiry tracking prefers the explicit expires_in, then a JWT
// exp claim inside the token.
func (c *Client) VerifyEmailCode(ctx context.Context, email, code string) (session.Credentials, error) {
	var resp verifyCodeResponse
	if err := c.do(ctx, http.MethodPost, "/email/verify/confirm", verifyCodeRequest{Email: email, Code: code}, &resp, ""); err != nil {
		return session.Credentials{}, err
	}
	if resp.Success != nil && !*resp.Success {
		return session.Credentials{}, api.APIError(http.StatusOK, resp.Message)
	}
	if resp.Token == "" {
		return session.Credentials{}, api.APIError(http.StatusOK, "verification response missing session token")
	}

	var explicit time.Time
	if resp.ExpiresIn > 0 {
		explicit = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return session.Credentials{
		Username:    resp.Username,
		Email:       email,
		BearerToken: resp.Token,
		TokenExpiry: session.ResolveExpiry(resp.Token, explicit),
	}, nil
}

type accountExistsResponse struct {
	Exists bool `json:"exists"`
}

// CheckExistingAccount reports whether the stored session maps to an
// existing account. It is best-effort and fail-open: any failure (no
// session, stale token, network trouble) reads as "no existing account" so
// startup is never blocked.
func (c *Client) CheckExistingAccount(ctx context.Context) bool {
	bearer, err := c.bearer(ctx)
	if err != nil {
		return false
	}

	var resp accountExistsResponse
	if err := c.do(ctx, http.MethodGet, "/account/exists", nil, &resp, bearer); err != nil {
		c.logger.Debug("existing_account_check_failed", "error", err.Error())
		return false
	}
	return resp.Exists
}

// PINSubmissionRequest is the payload for backing up a locally stored PIN.
type PINSubmissionRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

// PINSubmissionResponse acknowledges a PIN backup.
type PINSubmissionResponse struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
}

// SubmitPIN forwards the PIN to the backend. It requires a valid,
// non-expired bearer token; staleness is checked locally first.
func (c *Client) SubmitPIN(ctx context.Context, req PINSubmissionRequest) (PINSubmissionResponse, error) {
	bearer, err := c.bearer(ctx)
	if err != nil {
		return PINSubmissionResponse{}, err
	}

	var resp PINSubmissionResponse
	if err := c.do(ctx, http.MethodPost, "/store-pin/mobile", req, &resp, bearer); err != nil {
		return PINSubmissionResponse{}, err
	}
	if resp.Success != nil && !*resp.Success {
		return PINSubmissionResponse{}, api.APIError(http.StatusOK, resp.Message)
	}
	return resp, nil
}

type trainingStatusResponse struct {
	Progress             float64 `json:"progress"`
	DislikedInteractions int     `json:"disliked_interactions"`
	Completed            bool    `json:"completed"`
}

// TrainingStatus polls the backend training pipeline. Client satisfies
// api.TrainingSource so the coordinator can pump it directly.
func (c *Client) TrainingStatus(ctx context.Context) (api.TrainingStatus, error) {
	bearer, err := c.bearer(ctx)
	if err != nil {
		return api.TrainingStatus{}, err
	}

	var resp trainingStatusResponse
	if err := c.do(ctx, http.MethodGet, "/training/status", nil, &resp, bearer); err != nil {
		return api.TrainingStatus{}, err
	}
	return api.TrainingStatus{
		Progress:             resp.Progress,
		DislikedInteractions: resp.DislikedInteractions,
		Completed:            resp.Completed,
	}, nil
}

var _ api.TrainingSource = (*Client)(nil)

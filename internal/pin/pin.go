// Package pin binds a user-chosen PIN to a biometric (or device-passcode)
// proof before persisting it, then forwards it to the backend. Local
// persistence is the source of truth: a backend failure after a successful
// local store defers the sync instead of rejecting the PIN.
package pin

import (
	"context"
	"errors"
	"log/slog"

	"github.com/onairos/onairos-go/internal/apiclient"
	"github.com/onairos/onairos-go/internal/session"
	"github.com/onairos/onairos-go/pkg/api"
)

// Config describes how to construct a Store.
type Config struct {
	// Sessions is the secure at-rest keystore for the PIN.
	Sessions session.Store

	// Client forwards the PIN to the backend after local storage.
	Client *apiclient.Client

	// Authenticator is the device biometric prompt. Nil behaves like a
	// device without biometrics: storage proceeds ungated.
	Authenticator api.Authenticator

	Observer api.Observer
	Logger   *slog.Logger
}

// Store is the biometric-gated PIN store.
type Store struct {
	sessions      session.Store
	client        *apiclient.Client
	authenticator api.Authenticator
	observer      api.Observer
	logger        *slog.Logger
}

// Receipt reports how a PIN was persisted.
type Receipt struct {
	// BiometricGated is false when biometrics were unavailable and the
	// PIN was stored without a presence proof.
	BiometricGated bool

	// BackendSynced is false when the backend submission failed after
	// local storage succeeded; the sync is deferred, not lost.
	BackendSynced bool
}

// NewStore creates a Store from cfg.
func NewStore(cfg Config) *Store {
	observer := cfg.Observer
	if observer == nil {
		observer = api.NoopObserver{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions:      cfg.Sessions,
		client:        cfg.Client,
		authenticator: cfg.Authenticator,
		observer:      observer,
		logger:        logger,
	}
}

// Persist validates, gates, stores, and syncs rawPIN.
//
// Failure modes are distinguished because the coordinator's recovery policy
// differs per kind: a cancelled prompt is silently retriable; unavailable
// biometrics never block onboarding (the PIN is stored ungated); a keystore
// failure is terminal for this attempt.
func (s *Store) Persist(ctx context.Context, rawPIN, username string) (Receipt, error) {
	if err := api.ValidatePIN(rawPIN); err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{BiometricGated: true}
	if err := s.authenticate(ctx); err != nil {
		if e, ok := api.AsError(err); ok && e.Code == api.ErrBiometryUnavailable.Code {
			// Non-retriable but never a dead end: proceed without gating.
			s.logger.Info("biometry_unavailable_storing_ungated")
			receipt.BiometricGated = false
		} else {
			return Receipt{}, err
		}
	}

	if err := s.sessions.StorePIN(ctx, rawPIN); err != nil {
		return Receipt{}, api.ErrKeystoreFailure.WithCause(err)
	}

	_, err := s.client.SubmitPIN(ctx, apiclient.PINSubmissionRequest{
		Username: username,
		PIN:      rawPIN,
	})
	if err != nil {
		// The PIN is already safe locally; defer the sync.
		s.logger.Warn("pin_backend_sync_deferred", slog.String("error", err.Error()))
		s.observer.OnNotice(ctx, api.Notice{
			Kind:    api.NoticeError,
			Message: "Your PIN is saved on this device; syncing will be retried.",
		})
		receipt.BackendSynced = false
		return receipt, nil
	}

	receipt.BackendSynced = true
	return receipt, nil
}

// authenticate normalizes the host authenticator's answer into the public
// taxonomy.
func (s *Store) authenticate(ctx context.Context) error {
	if s.authenticator == nil {
		return api.ErrBiometryUnavailable
	}
	err := s.authenticator.Authenticate(ctx, "Confirm it's you to protect your PIN")
	if err == nil {
		return nil
	}
	if _, ok := api.AsError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return api.ErrBiometryCancelled.WithCause(err)
	}
	return api.ErrBiometryFailed.WithCause(err)
}

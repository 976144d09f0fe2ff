package client

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/dmitrijs2005/dealerclient/internal/client/credentials"
	"github.com/dmitrijs2005/dealerclient/internal/client/models"
	"github.com/dmitrijs2005/dealerclient/internal/logging"
)

// SessionExpiredFunc is called after the session has been cleared because it
// can no longer be renewed. Interactive front ends use it to ask the dealer to
// log in again.
type SessionExpiredFunc func(ctx context.Context)

// RefreshFunc exchanges a refresh token for new tokens.
type RefreshFunc func(ctx context.Context, refreshToken string) (*models.RefreshResult, error)

// refreshCall is the shared result of one refresh. done is closed after token
// and err are set and, on success, after the new session is in the store.
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// RefreshCoordinator runs at most one token refresh at a time. Callers that
// hit a 401 while a refresh is in flight wait for it and reuse its token.
type RefreshCoordinator struct {
	store     credentials.Store
	refresh   RefreshFunc
	onExpired SessionExpiredFunc
	log       logging.Logger

	mu       sync.Mutex
	inflight *refreshCall
}

func NewRefreshCoordinator(store credentials.Store, refresh RefreshFunc, onExpired SessionExpiredFunc, log logging.Logger) *RefreshCoordinator {
	if log == nil {
		log = logging.Discard()
	}
	return &RefreshCoordinator{store: store, refresh: refresh, onExpired: onExpired, log: log}
}

// Refresh returns an access token newer than staleToken. If another caller
// already replaced staleToken, the stored token is returned without a call.
// Any refresh failure ends the session: the store is cleared, the expiry hook
// runs once and every waiter gets an Authentication error.
func (c *RefreshCoordinator) Refresh(ctx context.Context, staleToken string) (string, error) {
	c.mu.Lock()
	call := c.inflight
	if call == nil {
		session, err := c.store.Load(ctx)
		if err != nil {
			c.mu.Unlock()
			return "", &APIError{Kind: KindGeneric, Message: "failed to load session", Err: err}
		}
		if session == nil {
			c.mu.Unlock()
			return "", sessionExpiredError()
		}
		if session.AccessToken != "" && session.AccessToken != staleToken {
			c.mu.Unlock()
			return session.AccessToken, nil
		}

		call = &refreshCall{done: make(chan struct{})}
		c.inflight = call
		go c.run(context.WithoutCancel(ctx), call, session)
	}
	c.mu.Unlock()

	select {
	case <-call.done:
		return call.token, call.err
	case <-ctx.Done():
		return "", newNetworkError(ctx.Err())
	}
}

func (c *RefreshCoordinator) run(ctx context.Context, call *refreshCall, session *models.Session) {
	token, err := c.renew(ctx, session)

	c.mu.Lock()
	c.inflight = nil
	c.mu.Unlock()

	call.token, call.err = token, err
	close(call.done)
}

func (c *RefreshCoordinator) renew(ctx context.Context, session *models.Session) (string, error) {
	if session.RefreshToken == "" {
		return "", c.Expire(ctx, errors.New("no refresh token"))
	}

	res, err := c.refresh(ctx, session.RefreshToken)
	if err != nil {
		return "", c.Expire(ctx, err)
	}
	if res == nil || res.AccessToken == "" {
		return "", c.Expire(ctx, errors.New("refresh returned no access token"))
	}

	updated := session.Clone()
	updated.AccessToken = res.AccessToken
	if res.RefreshToken != "" {
		updated.RefreshToken = res.RefreshToken
	}
	if res.Username != "" {
		updated.DisplayName = res.Username
	}
	if len(res.Roles) > 0 {
		updated.Roles = res.Roles
	}

	if err := c.store.Save(ctx, updated); err != nil {
		c.log.Error(ctx, "failed to persist refreshed session", "error", err)
		return "", &APIError{Kind: KindGeneric, Message: "failed to persist refreshed session", Err: err}
	}

	c.log.Info(ctx, "access token refreshed", "account_id", updated.AccountID)
	return res.AccessToken, nil
}

// Expire clears the session and notifies the expiry hook. It returns the
// Authentication error callers should surface.
func (c *RefreshCoordinator) Expire(ctx context.Context, cause error) error {
	c.log.Warn(ctx, "session expired", "cause", cause)
	if err := c.store.Clear(ctx); err != nil {
		c.log.Error(ctx, "failed to clear session", "error", err)
	}
	if c.onExpired != nil {
		c.onExpired(ctx)
	}
	return sessionExpiredError()
}

func sessionExpiredError() *APIError {
	return &APIError{Kind: KindAuthentication, Status: http.StatusUnauthorized, Message: "session expired"}
}

package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dealerclient/internal/client/credentials"
	"github.com/dmitrijs2005/dealerclient/internal/logging"
)

// authTransport attaches the bearer token and renews it through the
// RefreshCoordinator when the server answers 401.
type authTransport struct {
	next      Doer
	store     credentials.Store
	refresher *RefreshCoordinator
	skew      time.Duration
	now       func() time.Time
	log       logging.Logger
}

func newAuthTransport(next Doer, store credentials.Store, refresher *RefreshCoordinator, skew time.Duration, log logging.Logger) *authTransport {
	return &authTransport{
		next:      next,
		store:     store,
		refresher: refresher,
		skew:      skew,
		now:       time.Now,
		log:       log,
	}
}

func (t *authTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.SkipAuth {
		return t.next.Do(ctx, req)
	}

	session, err := t.store.Load(ctx)
	if err != nil {
		return nil, &APIError{Kind: KindGeneric, Message: "failed to load session", Err: err}
	}
	if session == nil || session.AccessToken == "" {
		return t.next.Do(ctx, req)
	}

	token := session.AccessToken
	if t.skew > 0 {
		if exp, ok := session.AccessTokenExpiry(); ok && !t.now().Add(t.skew).Before(exp) {
			t.log.Debug(ctx, "access token about to expire, refreshing", "expires_at", exp)
			token, err = t.refresher.Refresh(ctx, token)
			if err != nil {
				return nil, err
			}
		}
	}

	resp, err := t.next.Do(ctx, req.withHeader("Authorization", "Bearer "+token))
	if KindOf(err) != KindAuthentication {
		return resp, err
	}

	fresh, err := t.refresher.Refresh(ctx, token)
	if err != nil {
		return nil, err
	}

	resp, err = t.next.Do(ctx, req.withHeader("Authorization", "Bearer "+fresh))
	if KindOf(err) == KindAuthentication {
		return nil, t.refresher.Expire(ctx, err)
	}
	return resp, err
}

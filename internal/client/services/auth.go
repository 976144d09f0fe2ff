package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/dealerclient/internal/client/client"
	"github.com/dmitrijs2005/dealerclient/internal/client/credentials"
	"github.com/dmitrijs2005/dealerclient/internal/client/models"
	"github.com/dmitrijs2005/dealerclient/internal/client/repositories/products"
	"github.com/dmitrijs2005/dealerclient/internal/logging"
)

// UserTypeDealer is the userType sent on login; the storefront only admits
// dealer accounts.
const UserTypeDealer = "DEALER"

// AuthService manages the dealer session.
//
// Contract:
//   - Login: authenticate and persist the session.
//   - Logout: drop the session and the cached product metadata.
//   - Current: the stored session, or nil.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) (*models.Session, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (*models.Session, error)
}

type authService struct {
	client client.Client
	store  credentials.Store
	cache  products.Repository
	log    logging.Logger
}

// NewAuthService constructs an AuthService. cache may be nil.
func NewAuthService(c client.Client, store credentials.Store, cache products.Repository, log logging.Logger) AuthService {
	if log == nil {
		log = logging.Discard()
	}
	return &authService{client: c, store: store, cache: cache, log: log.With("service", "auth")}
}

func (a *authService) Login(ctx context.Context, username string, password []byte) (*models.Session, error) {
	var fields []client.FieldError
	if username == "" {
		fields = append(fields, client.FieldError{Field: "username", Message: "username is required"})
	}
	if len(password) == 0 {
		fields = append(fields, client.FieldError{Field: "password", Message: "password is required"})
	}
	if len(fields) > 0 {
		return nil, validationError("missing credentials", fields...)
	}

	res, err := a.client.Login(ctx, models.LoginRequest{
		Username: username,
		Password: string(password),
		UserType: UserTypeDealer,
	})
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	accountID := res.AccountID
	if accountID == 0 {
		id, ok := models.AccountIDFromToken(res.AccessToken)
		if !ok {
			return nil, &client.APIError{Kind: client.KindGeneric, Message: "login response carries no account id"}
		}
		accountID = id
	}

	displayName := res.Username
	if displayName == "" {
		displayName = username
	}

	session := &models.Session{
		AccountID:    accountID,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		DisplayName:  displayName,
		Roles:        res.Roles,
	}
	if err := a.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}

	a.log.Info(ctx, "logged in", "account_id", accountID, "username", displayName)
	return session.Clone(), nil
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.store.Clear(ctx); err != nil {
		return err
	}
	if a.cache != nil {
		if err := a.cache.Clear(ctx); err != nil {
			a.log.Warn(ctx, "failed to clear product cache", "error", err)
		}
	}
	a.log.Info(ctx, "logged out")
	return nil
}

func (a *authService) Current(ctx context.Context) (*models.Session, error) {
	return a.store.Load(ctx)
}

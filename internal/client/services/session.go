// Package services contains the application services of the dealer client:
// authentication, catalog lookups, the cart synchronizer, orders and
// warranty registration. Services sit between the CLI and client.Client and
// own all client-side state.
package services

import (
	"context"

	"github.com/dmitrijs2005/dealerclient/internal/client/client"
	"github.com/dmitrijs2005/dealerclient/internal/client/credentials"
)

// dealerID returns the account id of the stored session, or an
// Authentication error when nobody is logged in.
func dealerID(ctx context.Context, store credentials.Store) (int64, error) {
	session, err := store.Load(ctx)
	if err != nil {
		return 0, &client.APIError{Kind: client.KindGeneric, Message: "failed to load session", Err: err}
	}
	if session == nil {
		return 0, &client.APIError{Kind: client.KindAuthentication, Message: "not logged in"}
	}
	return session.AccountID, nil
}

func validationError(message string, fields ...client.FieldError) *client.APIError {
	return &client.APIError{Kind: client.KindValidation, Message: message, FieldErrors: fields}
}

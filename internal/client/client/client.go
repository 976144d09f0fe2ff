package client

import (
	"context"

	"github.com/dmitrijs2005/dealerclient/internal/client/models"
)

// Client is the dealer storefront API as seen by the services.
type Client interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.RefreshResult, error)

	GetCart(ctx context.Context, dealerID int64) ([]models.CartLine, error)
	AddCartItem(ctx context.Context, req models.AddCartItemRequest) error
	UpdateCartItemQuantity(ctx context.Context, cartID int64, action models.QuantityAction, quantity int) (*models.CartLine, error)
	RemoveCartItem(ctx context.Context, cartID int64) error
	ClearCart(ctx context.Context, dealerID int64) error

	GetProduct(ctx context.Context, productID int64, fields ...string) (*models.Product, error)
	GetAvailableCount(ctx context.Context, productID int64) (int, error)

	CreateOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error)
	ListOrders(ctx context.Context, dealerID int64) ([]models.Order, error)

	RegisterWarranty(ctx context.Context, req models.WarrantyRequest) (*models.Warranty, error)
}

package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/dealerclient/internal/client/client"
	"github.com/dmitrijs2005/dealerclient/internal/client/credentials"
	"github.com/dmitrijs2005/dealerclient/internal/client/models"
	"github.com/dmitrijs2005/dealerclient/internal/logging"
)

type OrderService interface {
	// PlaceOrder turns the cart mirror into an order and clears the cart.
	PlaceOrder(ctx context.Context, note string) (*models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
}

type orderService struct {
	client client.Client
	store  credentials.Store
	cart   CartService
	log    logging.Logger
}

func NewOrderService(c client.Client, store credentials.Store, cart CartService, log logging.Logger) OrderService {
	if log == nil {
		log = logging.Discard()
	}
	return &orderService{client: c, store: store, cart: cart, log: log.With("service", "order")}
}

func (s *orderService) PlaceOrder(ctx context.Context, note string) (*models.Order, error) {
	dealer, err := dealerID(ctx, s.store)
	if err != nil {
		return nil, err
	}

	s.cart.Wait()
	lines := s.cart.Items()
	if len(lines) == 0 {
		return nil, validationError("cart is empty")
	}

	order, err := s.client.CreateOrder(ctx, models.OrderRequest{
		DealerID:    dealer,
		Items:       models.OrderItemsFromCart(lines),
		TotalAmount: models.TotalAmount(lines),
		Note:        note,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.log.Info(ctx, "order placed", "order_id", order.OrderID, "total", order.TotalAmount)

	if err := s.cart.ClearCart(ctx); err != nil {
		s.log.Warn(ctx, "failed to clear cart after checkout", "order_id", order.OrderID, "error", err)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	dealer, err := dealerID(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return s.client.ListOrders(ctx, dealer)
}

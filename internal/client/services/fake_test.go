package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/dealerclient/internal/client/client"
	"github.com/dmitrijs2005/dealerclient/internal/client/credentials"
	"github.com/dmitrijs2005/dealerclient/internal/client/models"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// fakeClient implements client.Client over an in-memory cart, so cart
// mutations behave like the real server's.
type fakeClient struct {
	mu sync.Mutex

	loginRes  *models.LoginResult
	loginErr  error
	lastLogin models.LoginRequest

	cart       []models.CartLine
	nextCartID int64

	getCartErr error
	addErr     error
	updateErr  error
	removeErr  error
	clearErr   error

	getCartCalls int
	addCalls     int
	updateCalls  []models.QuantityAction
	removeCalls  []int64
	clearCalls   int

	// getCartGate runs after the n-th (1-based) GetCart has copied the cart.
	getCartGate func(n int)
	// updateGate runs before the n-th (1-based) quantity update touches the cart.
	updateGate func(n int)

	products        map[int64]models.Product
	productDelay    time.Duration
	getProductCalls map[int64]int

	createOrderErr error
	lastOrder      *models.OrderRequest
	orders         []models.Order

	lastWarranty *models.WarrantyRequest
}

var _ client.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{
		nextCartID:      100,
		products:        map[int64]models.Product{},
		getProductCalls: map[int64]int{},
	}
}

func (f *fakeClient) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLogin = req
	return f.loginRes, f.loginErr
}

func (f *fakeClient) RefreshToken(ctx context.Context, refreshToken string) (*models.RefreshResult, error) {
	return nil, &client.APIError{Kind: client.KindAuthentication}
}

func (f *fakeClient) GetCart(ctx context.Context, dealerID int64) ([]models.CartLine, error) {
	f.mu.Lock()
	f.getCartCalls++
	n := f.getCartCalls
	err := f.getCartErr
	lines := slices.Clone(f.cart)
	gate := f.getCartGate
	f.mu.Unlock()

	if gate != nil {
		gate(n)
	}
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (f *fakeClient) AddCartItem(ctx context.Context, req models.AddCartItemRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	if f.addErr != nil {
		return f.addErr
	}
	for i := range f.cart {
		if f.cart[i].ProductID == req.ProductID {
			f.cart[i].Quantity += req.Quantity
			f.cart[i].Recalculate()
			return nil
		}
	}
	line := models.CartLine{CartID: f.nextCartID, ProductID: req.ProductID, Quantity: req.Quantity, UnitPrice: req.UnitPrice}
	line.Recalculate()
	f.nextCartID++
	f.cart = append(f.cart, line)
	return nil
}

func (f *fakeClient) UpdateCartItemQuantity(ctx context.Context, cartID int64, action models.QuantityAction, quantity int) (*models.CartLine, error) {
	f.mu.Lock()
	f.updateCalls = append(f.updateCalls, action)
	n := len(f.updateCalls)
	gate := f.updateGate
	f.mu.Unlock()

	if gate != nil {
		gate(n)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for i := range f.cart {
		if f.cart[i].CartID != cartID {
			continue
		}
		next, remove, err := models.ApplyQuantity(f.cart[i].Quantity, action, quantity)
		if err != nil {
			return nil, err
		}
		if remove {
			f.cart = slices.Delete(f.cart, i, i+1)
			return nil, nil
		}
		f.cart[i].Quantity = next
		f.cart[i].Recalculate()
		echo := f.cart[i]
		return &echo, nil
	}
	return nil, &client.APIError{Kind: client.KindNotFound}
}

func (f *fakeClient) RemoveCartItem(ctx context.Context, cartID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls = append(f.removeCalls, cartID)
	if f.removeErr != nil {
		return f.removeErr
	}
	f.cart = slices.DeleteFunc(f.cart, func(l models.CartLine) bool { return l.CartID == cartID })
	return nil
}

func (f *fakeClient) ClearCart(ctx context.Context, dealerID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cart = nil
	return nil
}

func (f *fakeClient) GetProduct(ctx context.Context, productID int64, fields ...string) (*models.Product, error) {
	f.mu.Lock()
	f.getProductCalls[productID]++
	p, ok := f.products[productID]
	delay := f.productDelay
	f.mu.Unlock()

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if !ok {
		return nil, &client.APIError{Kind: client.KindNotFound, Status: 404}
	}
	return &p, nil
}

func (f *fakeClient) GetAvailableCount(ctx context.Context, productID int64) (int, error) {
	return 5, nil
}

func (f *fakeClient) CreateOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOrder = &req
	if f.createOrderErr != nil {
		return nil, f.createOrderErr
	}
	o := models.Order{OrderID: int64(len(f.orders) + 1), DealerID: req.DealerID, Status: "PENDING", TotalAmount: req.TotalAmount, Items: req.Items, Note: req.Note}
	f.orders = append(f.orders, o)
	return &o, nil
}

func (f *fakeClient) ListOrders(ctx context.Context, dealerID int64) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.orders), nil
}

func (f *fakeClient) RegisterWarranty(ctx context.Context, req models.WarrantyRequest) (*models.Warranty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastWarranty = &req
	return &models.Warranty{WarrantyID: 1, SerialNumber: req.SerialNumber, Status: "ACTIVE"}, nil
}

func (f *fakeClient) updates() []models.QuantityAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.updateCalls)
}

func (f *fakeClient) removals() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.removeCalls)
}

func (f *fakeClient) productCalls(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getProductCalls[id]
}

func dealerStore() credentials.Store {
	return credentials.NewMemoryStore(&models.Session{
		AccountID:    42,
		AccessToken:  "A",
		RefreshToken: "R",
		DisplayName:  "dealer",
		Roles:        []string{"DEALER"},
	})
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE product_cache (
    product_id  INTEGER PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT '',
    image       TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    cached_at   TIMESTAMP NOT NULL
);`)
	require.NoError(t, err)
	return db
}

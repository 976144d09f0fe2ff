package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/dealerclient/internal/client/credentials"
	"github.com/dmitrijs2005/dealerclient/internal/client/models"
	"github.com/dmitrijs2005/dealerclient/internal/logging"
)

// Options configures a RESTClient. Zero values fall back to the defaults
// below.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	MaxAttempts       int
	RetryBaseDelay    time.Duration
	RequestsPerSecond float64
	RefreshSkew       time.Duration

	HTTPClient       *http.Client
	Store            credentials.Store
	Logger           logging.Logger
	OnSessionExpired SessionExpiredFunc
}

const (
	DefaultTimeout        = 15 * time.Second
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = 300 * time.Millisecond
)

// RESTClient talks to the dealer storefront REST API. Requests go through
// auth(retry(http)); login and refresh skip the auth layer.
type RESTClient struct {
	doer      Doer
	plain     Doer
	refresher *RefreshCoordinator
	log       logging.Logger
}

var _ Client = (*RESTClient)(nil)

func New(opts Options) (*RESTClient, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	log := opts.Logger.With("component", "api")
	base := newHTTPTransport(opts.BaseURL, opts.HTTPClient, opts.Timeout, opts.RequestsPerSecond, log)
	plain := newRetryTransport(base, opts.MaxAttempts, opts.RetryBaseDelay, log)

	c := &RESTClient{plain: plain, log: log}
	c.refresher = NewRefreshCoordinator(opts.Store, c.RefreshToken, opts.OnSessionExpired, log)
	c.doer = newAuthTransport(plain, opts.Store, c.refresher, opts.RefreshSkew, log)
	return c, nil
}

// Refresher exposes the coordinator so callers can end a session explicitly.
func (c *RESTClient) Refresher() *RefreshCoordinator { return c.refresher }

func (c *RESTClient) request(ctx context.Context, req *Request, out any) error {
	d := c.doer
	if req.SkipAuth {
		d = c.plain
	}
	resp, err := d.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func (c *RESTClient) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	var res models.LoginResult
	err := c.request(ctx, &Request{Method: http.MethodPost, Path: "/api/auth/login", Body: req, SkipAuth: true}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *RESTClient) RefreshToken(ctx context.Context, refreshToken string) (*models.RefreshResult, error) {
	var res models.RefreshResult
	err := c.request(ctx, &Request{
		Method:   http.MethodPost,
		Path:     "/api/auth/refresh",
		Body:     models.RefreshRequest{Token: refreshToken},
		SkipAuth: true,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetCart accepts both {"items": [...]} and a bare array.
func (c *RESTClient) GetCart(ctx context.Context, dealerID int64) ([]models.CartLine, error) {
	resp, err := c.doer.Do(ctx, &Request{Method: http.MethodGet, Path: "/api/cart/dealer/" + id(dealerID)})
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(string(resp.Body))
	if strings.HasPrefix(body, "[") {
		var lines []models.CartLine
		if err := json.Unmarshal(resp.Body, &lines); err != nil {
			return nil, &APIError{Kind: KindGeneric, Status: resp.Status, Message: "malformed cart response", Err: err}
		}
		return lines, nil
	}
	var cart models.CartResponse
	if err := resp.Decode(&cart); err != nil {
		return nil, err
	}
	return cart.Items, nil
}

func (c *RESTClient) AddCartItem(ctx context.Context, req models.AddCartItemRequest) error {
	return c.request(ctx, &Request{Method: http.MethodPost, Path: "/api/cart/items", Body: req}, nil)
}

// UpdateCartItemQuantity returns the updated line when the server echoes it,
// nil otherwise.
func (c *RESTClient) UpdateCartItemQuantity(ctx context.Context, cartID int64, action models.QuantityAction, quantity int) (*models.CartLine, error) {
	q := url.Values{"action": {string(action)}}
	if action == models.ActionSet {
		q.Set("quantity", strconv.Itoa(quantity))
	}
	resp, err := c.doer.Do(ctx, &Request{
		Method: http.MethodPatch,
		Path:   "/api/cart/items/" + id(cartID) + "/quantity",
		Query:  q,
	})
	if err != nil {
		return nil, err
	}
	var line models.CartLine
	if err := resp.Decode(&line); err != nil {
		return nil, err
	}
	if line.CartID == 0 {
		return nil, nil
	}
	return &line, nil
}

func (c *RESTClient) RemoveCartItem(ctx context.Context, cartID int64) error {
	return c.request(ctx, &Request{Method: http.MethodDelete, Path: "/api/cart/items/" + id(cartID)}, nil)
}

func (c *RESTClient) ClearCart(ctx context.Context, dealerID int64) error {
	return c.request(ctx, &Request{Method: http.MethodDelete, Path: "/api/cart/dealer/" + id(dealerID)}, nil)
}

func (c *RESTClient) GetProduct(ctx context.Context, productID int64, fields ...string) (*models.Product, error) {
	req := &Request{Method: http.MethodGet, Path: "/api/product/" + id(productID)}
	if len(fields) > 0 {
		req.Query = url.Values{"fields": {strings.Join(fields, ",")}}
	}
	var p models.Product
	if err := c.request(ctx, req, &p); err != nil {
		return nil, err
	}
	if p.ID == 0 {
		p.ID = productID
	}
	return &p, nil
}

func (c *RESTClient) GetAvailableCount(ctx context.Context, productID int64) (int, error) {
	var n models.AvailableCount
	err := c.request(ctx, &Request{
		Method: http.MethodGet,
		Path:   "/api/product/product-serials/" + id(productID) + "/available-count",
	}, &n)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (c *RESTClient) CreateOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	var o models.Order
	if err := c.request(ctx, &Request{Method: http.MethodPost, Path: "/api/order/orders", Body: req}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *RESTClient) ListOrders(ctx context.Context, dealerID int64) ([]models.Order, error) {
	var orders []models.Order
	if err := c.request(ctx, &Request{Method: http.MethodGet, Path: "/api/order/orders/dealer/" + id(dealerID)}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *RESTClient) RegisterWarranty(ctx context.Context, req models.WarrantyRequest) (*models.Warranty, error) {
	var w models.Warranty
	if err := c.request(ctx, &Request{Method: http.MethodPost, Path: "/api/warranty", Body: req}, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

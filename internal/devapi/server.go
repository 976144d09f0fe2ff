// Package devapi is an in-memory implementation of the dealer storefront API
// used for local development and end-to-end tests of the client.
package devapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/dealerclient/internal/client/models"
	"github.com/dmitrijs2005/dealerclient/internal/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const ctxClaims = "claims"

type fieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type errorBody struct {
	Message string       `json:"message"`
	Errors  []fieldError `json:"errors,omitempty"`
}

// validationError is rendered as 422 with per-field messages.
type validationError struct {
	message string
	fields  []fieldError
}

func (e *validationError) Error() string { return e.message }

func invalid(msg string, fields ...fieldError) error {
	return &validationError{message: msg, fields: fields}
}

type Server struct {
	cfg   *Config
	e     *echo.Echo
	st    *store
	log   logging.Logger
	http  *http.Server
	calls atomic.Int64
}

// NewServer builds a server seeded with demo dealers and products.
func NewServer(cfg *Config, log logging.Logger) (*Server, error) {
	if log == nil {
		log = logging.Discard()
	}
	s := &Server{cfg: cfg, st: newStore(), log: log.With("component", "devapi")}
	if err := seed(s.st); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover(), middleware.RequestID(), s.requestLogger())

	auth := e.Group("/api/auth")
	auth.POST("/login", s.login)
	auth.POST("/refresh", s.refresh)

	api := e.Group("/api", s.requireAuth)
	api.GET("/cart/dealer/:dealerId", s.getCart)
	api.DELETE("/cart/dealer/:dealerId", s.clearCart)
	api.POST("/cart/items", s.addCartItem)
	api.PATCH("/cart/items/:cartId/quantity", s.updateCartItem)
	api.DELETE("/cart/items/:cartId", s.removeCartItem)
	api.GET("/product/:id", s.getProduct)
	api.GET("/product/product-serials/:id/available-count", s.availableCount)
	api.POST("/order/orders", s.createOrder)
	api.GET("/order/orders/dealer/:dealerId", s.listOrders)
	api.POST("/warranty", s.registerWarranty)

	s.e = e
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.e
}

// Start serves on cfg.Addr until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "devapi listening", "addr", s.cfg.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// ExpireAccessTokens invalidates every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.st.bumpGeneration()
}

// RevokeRefreshTokens invalidates every outstanding refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.st.revokeRefreshTokens()
}

// RefreshCalls returns how many refresh requests were received.
func (s *Server) RefreshCalls() int64 {
	return s.calls.Load()
}

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}
		claims, err := ParseToken(token, []byte(s.cfg.SecretKey))
		if err != nil || claims.Generation != s.st.currentGeneration() {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		c.Set(ctxClaims, claims)
		return next(c)
	}
}

func claimsOf(c echo.Context) *Claims {
	claims, _ := c.Get(ctxClaims).(*Claims)
	return claims
}

// ownDealer rejects requests for another dealer's data.
func ownDealer(c echo.Context, dealerID int64) error {
	if claims := claimsOf(c); claims == nil || claims.AccountID != dealerID {
		return echo.NewHTTPError(http.StatusForbidden, "access to another dealer is not allowed")
	}
	return nil
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a positive integer")
	}
	return id, nil
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	body := errorBody{Message: "internal server error"}

	var he *echo.HTTPError
	var ve *validationError
	switch {
	case errors.As(err, &ve):
		status = http.StatusUnprocessableEntity
		body = errorBody{Message: ve.message, Errors: ve.fields}
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
		body.Message = "resource not found"
	case errors.Is(err, ErrForbidden):
		status = http.StatusForbidden
		body.Message = "access to another dealer is not allowed"
	case errors.As(err, &he):
		status = he.Code
		if msg, ok := he.Message.(string); ok {
			body.Message = msg
		} else {
			body.Message = http.StatusText(status)
		}
	default:
		s.log.Error(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Info(c.Request().Context(), "request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			)
			return nil
		},
	})
}

func seed(st *store) error {
	dealers := []struct {
		id                          int64
		username, password, display string
	}{
		{1, "anphat", "anphat123", "Đại lý An Phát"},
		{2, "minhlong", "minhlong123", "Đại lý Minh Long"},
	}
	for _, d := range dealers {
		if err := st.addAccount(d.id, d.username, d.display, d.password, "DEALER"); err != nil {
			return err
		}
	}

	st.addProduct(models.Product{
		ID: 1, SKU: "WP-RO-10", Name: "Máy lọc nước RO 10 lõi",
		Image: "/images/wp-ro-10.png", Description: "Máy lọc nước RO 10 lõi lọc",
		Price: 7500000, DealerPrice: 6800000,
	}, 25)
	st.addProduct(models.Product{
		ID: 2, SKU: "WP-NANO-5", Name: "Máy lọc nước Nano 5 lõi",
		Image: "/images/wp-nano-5.png", Description: "Máy lọc nước Nano không dùng điện",
		Price: 4200000,
	}, 8)
	st.addProduct(models.Product{
		ID: 3, SKU: "FLT-PP", Name: "Lõi lọc PP 5 micron",
		Image: "/images/flt-pp.png", Description: "Lõi lọc thô thay thế",
		Price: 90000, DealerPrice: 70000,
	}, 0)
	return nil
}

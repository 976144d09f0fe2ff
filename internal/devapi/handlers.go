package devapi

import (
	"errors"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/dealerclient/internal/client/models"
	"github.com/labstack/echo/v4"
)

func (s *Server) issueTokens(acc *Account) (access, refresh string, err error) {
	access, err = GenerateToken(acc.ID, acc.Roles, s.st.currentGeneration(), []byte(s.cfg.SecretKey), s.cfg.AccessTokenTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.st.issueRefreshToken(acc.ID, s.cfg.RefreshTokenTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// login never sends accountId; clients read it from the token.
func (s *Server) login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var fields []fieldError
	if strings.TrimSpace(req.Username) == "" {
		fields = append(fields, fieldError{Field: "username", Message: "username is required"})
	}
	if req.Password == "" {
		fields = append(fields, fieldError{Field: "password", Message: "password is required"})
	}
	if req.UserType != "DEALER" {
		fields = append(fields, fieldError{Field: "userType", Message: "userType must be DEALER"})
	}
	if len(fields) > 0 {
		return invalid("invalid login request", fields...)
	}

	acc, err := s.st.authenticate(req.Username, req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
	}

	access, refresh, err := s.issueTokens(acc)
	if err != nil {
		return err
	}
	s.log.Info(c.Request().Context(), "dealer logged in", "account_id", acc.ID)

	return c.JSON(http.StatusOK, models.LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Username:     acc.DisplayName,
		Roles:        acc.Roles,
	})
}

// refresh rotates the refresh token: the presented one stops working.
func (s *Server) refresh(c echo.Context) error {
	s.calls.Add(1)

	var req models.RefreshRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	accountID, err := s.st.consumeRefreshToken(req.Token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired refresh token")
	}
	acc, ok := s.st.accountByID(accountID)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "account no longer exists")
	}

	access, refresh, err := s.issueTokens(acc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.RefreshResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Username:     acc.DisplayName,
		Roles:        acc.Roles,
	})
}

func (s *Server) getCart(c echo.Context) error {
	dealerID, err := pathID(c, "dealerId")
	if err != nil {
		return err
	}
	if err := ownDealer(c, dealerID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.CartResponse{Items: s.st.cart(dealerID)})
}

func (s *Server) clearCart(c echo.Context) error {
	dealerID, err := pathID(c, "dealerId")
	if err != nil {
		return err
	}
	if err := ownDealer(c, dealerID); err != nil {
		return err
	}
	s.st.clearCart(dealerID)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) addCartItem(c echo.Context) error {
	var req models.AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := ownDealer(c, req.DealerID); err != nil {
		return err
	}

	var fields []fieldError
	if req.ProductID <= 0 {
		fields = append(fields, fieldError{Field: "productId", Message: "productId is required"})
	}
	if req.Quantity <= 0 {
		fields = append(fields, fieldError{Field: "quantity", Message: "quantity must be positive"})
	}
	if req.UnitPrice < 0 {
		fields = append(fields, fieldError{Field: "unitPrice", Message: "unitPrice must not be negative"})
	}
	if len(fields) > 0 {
		return invalid("invalid cart item", fields...)
	}

	line, err := s.st.addToCart(req.DealerID, req.ProductID, req.Quantity, req.UnitPrice)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, line)
}

// updateCartItem answers 204 when the action removed the line.
func (s *Server) updateCartItem(c echo.Context) error {
	cartID, err := pathID(c, "cartId")
	if err != nil {
		return err
	}

	action, err := models.ParseQuantityAction(c.QueryParam("action"))
	if err != nil {
		return invalid("invalid quantity update", fieldError{Field: "action", Message: err.Error()})
	}
	var quantity int
	if action == models.ActionSet {
		quantity, err = strconv.Atoi(c.QueryParam("quantity"))
		if err != nil {
			return invalid("invalid quantity update", fieldError{Field: "quantity", Message: "quantity must be an integer"})
		}
	}

	line, removed, err := s.st.updateQuantity(claimsOf(c).AccountID, cartID, action, quantity)
	if err != nil {
		return err
	}
	if removed {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, line)
}

func (s *Server) removeCartItem(c echo.Context) error {
	cartID, err := pathID(c, "cartId")
	if err != nil {
		return err
	}
	if err := s.st.removeLine(claimsOf(c).AccountID, cartID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// getProduct honors ?fields=a,b by returning only the named attributes
// plus id.
func (s *Server) getProduct(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, ok := s.st.product(id)
	if !ok {
		return ErrNotFound
	}

	fields := c.QueryParam("fields")
	if fields == "" {
		return c.JSON(http.StatusOK, p)
	}

	all := map[string]any{
		"sku":         p.SKU,
		"name":        p.Name,
		"image":       p.Image,
		"description": p.Description,
		"price":       p.Price,
		"dealerPrice": p.DealerPrice,
	}
	out := map[string]any{"id": p.ID}
	for _, f := range strings.Split(fields, ",") {
		f = strings.TrimSpace(f)
		if v, ok := all[f]; ok {
			out[f] = v
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) availableCount(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	n, ok := s.st.availableCount(id)
	if !ok {
		return ErrNotFound
	}
	return c.JSON(http.StatusOK, map[string]int{"count": n})
}

func (s *Server) createOrder(c echo.Context) error {
	var req models.OrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := ownDealer(c, req.DealerID); err != nil {
		return err
	}

	if len(req.Items) == 0 {
		return invalid("invalid order", fieldError{Field: "items", Message: "order has no items"})
	}
	var fields []fieldError
	var total float64
	for i, it := range req.Items {
		if _, ok := s.st.product(it.ProductID); !ok {
			fields = append(fields, fieldError{Field: "items[" + strconv.Itoa(i) + "].productId", Message: "unknown product"})
		}
		if it.Quantity <= 0 {
			fields = append(fields, fieldError{Field: "items[" + strconv.Itoa(i) + "].quantity", Message: "quantity must be positive"})
		}
		total += it.UnitPrice * float64(it.Quantity)
	}
	if math.Abs(total-req.TotalAmount) > 0.01 {
		fields = append(fields, fieldError{Field: "totalAmount", Message: "totalAmount does not match items"})
	}
	if len(fields) > 0 {
		return invalid("invalid order", fields...)
	}

	o := s.st.createOrder(req)
	s.log.Info(c.Request().Context(), "order created", "order_id", o.OrderID, "dealer_id", o.DealerID)
	return c.JSON(http.StatusCreated, o)
}

func (s *Server) listOrders(c echo.Context) error {
	dealerID, err := pathID(c, "dealerId")
	if err != nil {
		return err
	}
	if err := ownDealer(c, dealerID); err != nil {
		return err
	}
	orders := s.st.listOrders(dealerID)
	slices.SortFunc(orders, func(a, b models.Order) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return c.JSON(http.StatusOK, orders)
}

func (s *Server) registerWarranty(c echo.Context) error {
	var req models.WarrantyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := ownDealer(c, req.DealerID); err != nil {
		return err
	}

	var fields []fieldError
	if strings.TrimSpace(req.SerialNumber) == "" {
		fields = append(fields, fieldError{Field: "serialNumber", Message: "serial number is required"})
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		fields = append(fields, fieldError{Field: "customerName", Message: "customer name is required"})
	}
	if strings.TrimSpace(req.CustomerPhone) == "" {
		fields = append(fields, fieldError{Field: "customerPhone", Message: "customer phone is required"})
	}
	if req.PurchaseDate.IsZero() || req.PurchaseDate.After(time.Now().Add(24*time.Hour)) {
		fields = append(fields, fieldError{Field: "purchaseDate", Message: "purchase date is invalid"})
	}
	if len(fields) > 0 {
		return invalid("invalid warranty registration", fields...)
	}

	w, err := s.st.registerWarranty(req)
	if errors.Is(err, ErrDuplicateSerial) {
		return invalid("invalid warranty registration", fieldError{Field: "serialNumber", Message: err.Error()})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w)
}

package devapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/dealerclient/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(testConfig(), nil)
	require.NoError(t, err)
	return s
}

func call(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *Server, username, password string) models.LoginResult {
	t.Helper()
	rec := call(t, s, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Username: username, Password: password, UserType: "DEALER"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res models.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	res := login(t, s, "anphat", "anphat123")
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "Đại lý An Phát", res.Username)
	assert.Equal(t, []string{"DEALER"}, res.Roles)
	assert.Zero(t, res.AccountID)

	id, ok := models.AccountIDFromToken(res.AccessToken)
	require.True(t, ok)
	assert.EqualValues(t, 1, id)

	rec := call(t, s, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Username: "anphat", Password: "wrong", UserType: "DEALER"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, decodeError(t, rec).Message)

	rec = call(t, s, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Username: "anphat", Password: "anphat123", UserType: "ADMIN"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeError(t, rec)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "userType", body.Errors[0].Field)
}

func TestRefreshRotatesTokens(t *testing.T) {
	s := newTestServer(t)
	res := login(t, s, "anphat", "anphat123")

	rec := call(t, s, http.MethodPost, "/api/auth/refresh", "", models.RefreshRequest{Token: res.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var refreshed models.RefreshResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, res.RefreshToken, refreshed.RefreshToken)

	rec = call(t, s, http.MethodPost, "/api/auth/refresh", "", models.RefreshRequest{Token: res.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.EqualValues(t, 2, s.RefreshCalls())

	s.RevokeRefreshTokens()
	rec = call(t, s, http.MethodPost, "/api/auth/refresh", "", models.RefreshRequest{Token: refreshed.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth(t *testing.T) {
	s := newTestServer(t)

	rec := call(t, s, http.MethodGet, "/api/cart/dealer/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, s, http.MethodGet, "/api/cart/dealer/1", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	res := login(t, s, "anphat", "anphat123")
	rec = call(t, s, http.MethodGet, "/api/cart/dealer/1", res.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	s.ExpireAccessTokens()
	rec = call(t, s, http.MethodGet, "/api/cart/dealer/1", res.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := GenerateToken(1, []string{"DEALER"}, 1, []byte(testConfig().SecretKey), -time.Minute)
	require.NoError(t, err)
	rec = call(t, s, http.MethodGet, "/api/cart/dealer/1", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s, "anphat", "anphat123").AccessToken

	add := models.AddCartItemRequest{DealerID: 1, ProductID: 1, Quantity: 2, UnitPrice: 6800000}
	rec := call(t, s, http.MethodPost, "/api/cart/items", token, add)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	add.Quantity = 1
	rec = call(t, s, http.MethodPost, "/api/cart/items", token, add)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = call(t, s, http.MethodGet, "/api/cart/dealer/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cart models.CartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	require.Len(t, cart.Items, 1)
	line := cart.Items[0]
	assert.Equal(t, 3, line.Quantity)
	assert.Equal(t, 3*6800000.0, line.Subtotal)
	assert.Empty(t, line.ProductName)

	rec = call(t, s, http.MethodPatch, "/api/cart/items/1/quantity?action=increment", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.CartLine
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 4, updated.Quantity)

	rec = call(t, s, http.MethodPatch, "/api/cart/items/1/quantity?action=set&quantity=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, s, http.MethodPatch, "/api/cart/items/1/quantity?action=decrement", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = call(t, s, http.MethodPatch, "/api/cart/items/1/quantity?action=decrement", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, s, http.MethodPatch, "/api/cart/items/1/quantity?action=double", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = call(t, s, http.MethodPost, "/api/cart/items", token, models.AddCartItemRequest{DealerID: 1, ProductID: 2, Quantity: 1, UnitPrice: 4200000})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = call(t, s, http.MethodDelete, "/api/cart/dealer/1", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, s.st.cart(1))
}

func TestCartValidation(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s, "anphat", "anphat123").AccessToken

	rec := call(t, s, http.MethodPost, "/api/cart/items", token, models.AddCartItemRequest{DealerID: 1, ProductID: 0, Quantity: 0})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Len(t, decodeError(t, rec).Errors, 2)

	rec = call(t, s, http.MethodPost, "/api/cart/items", token, models.AddCartItemRequest{DealerID: 1, ProductID: 99, Quantity: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartOwnership(t *testing.T) {
	s := newTestServer(t)
	anphat := login(t, s, "anphat", "anphat123").AccessToken
	minhlong := login(t, s, "minhlong", "minhlong123").AccessToken

	rec := call(t, s, http.MethodPost, "/api/cart/items", anphat, models.AddCartItemRequest{DealerID: 1, ProductID: 1, Quantity: 1, UnitPrice: 1})
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, http.StatusForbidden, call(t, s, http.MethodGet, "/api/cart/dealer/1", minhlong, nil).Code)
	assert.Equal(t, http.StatusForbidden, call(t, s, http.MethodDelete, "/api/cart/items/1", minhlong, nil).Code)
	assert.Equal(t, http.StatusForbidden, call(t, s, http.MethodPatch, "/api/cart/items/1/quantity?action=increment", minhlong, nil).Code)
	assert.Equal(t, http.StatusForbidden,
		call(t, s, http.MethodPost, "/api/cart/items", minhlong, models.AddCartItemRequest{DealerID: 1, ProductID: 1, Quantity: 1}).Code)

	assert.Equal(t, http.StatusNoContent, call(t, s, http.MethodDelete, "/api/cart/items/1", anphat, nil).Code)
}

func TestProduct(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s, "anphat", "anphat123").AccessToken

	rec := call(t, s, http.MethodGet, "/api/product/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "WP-RO-10", p.SKU)
	assert.Equal(t, 6800000.0, p.PriceFor())

	rec = call(t, s, http.MethodGet, "/api/product/1?fields=name,image", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var projected map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &projected))
	assert.Len(t, projected, 3)
	assert.Equal(t, "Máy lọc nước RO 10 lõi", projected["name"])

	assert.Equal(t, http.StatusNotFound, call(t, s, http.MethodGet, "/api/product/99", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, call(t, s, http.MethodGet, "/api/product/abc", token, nil).Code)

	rec = call(t, s, http.MethodGet, "/api/product/product-serials/2/available-count", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var n models.AvailableCount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &n))
	assert.EqualValues(t, 8, n)
}

func TestOrders(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s, "anphat", "anphat123").AccessToken

	items := []models.OrderItem{{ProductID: 1, Quantity: 2, UnitPrice: 100}, {ProductID: 3, Quantity: 1, UnitPrice: 50}}

	rec := call(t, s, http.MethodPost, "/api/order/orders", token, models.OrderRequest{DealerID: 1, Items: items, TotalAmount: 999})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "totalAmount", decodeError(t, rec).Errors[0].Field)

	rec = call(t, s, http.MethodPost, "/api/order/orders", token, models.OrderRequest{DealerID: 1})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = call(t, s, http.MethodPost, "/api/order/orders", token, models.OrderRequest{DealerID: 1, Items: items, TotalAmount: 250, Note: "giao buổi sáng"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var o models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.EqualValues(t, 1, o.OrderID)
	assert.Equal(t, "PENDING", o.Status)
	assert.Contains(t, o.OrderCode, "ORD-")

	rec = call(t, s, http.MethodGet, "/api/order/orders/dealer/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "giao buổi sáng", orders[0].Note)

	assert.Equal(t, http.StatusForbidden, call(t, s, http.MethodGet, "/api/order/orders/dealer/2", token, nil).Code)
}

func TestWarranty(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s, "anphat", "anphat123").AccessToken

	purchased := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	req := models.WarrantyRequest{
		DealerID: 1, SerialNumber: "SN-001", CustomerName: "Nguyễn Văn A",
		CustomerPhone: "0901234567", PurchaseDate: purchased,
	}
	rec := call(t, s, http.MethodPost, "/api/warranty", token, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var w models.Warranty
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &w))
	assert.Equal(t, "ACTIVE", w.Status)
	assert.True(t, w.ExpiresAt.Equal(purchased.AddDate(1, 0, 0)))

	req.SerialNumber = "sn-001"
	rec = call(t, s, http.MethodPost, "/api/warranty", token, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "serialNumber", decodeError(t, rec).Errors[0].Field)

	rec = call(t, s, http.MethodPost, "/api/warranty", token, models.WarrantyRequest{DealerID: 1})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Len(t, decodeError(t, rec).Errors, 4)
}

func TestLoadConfig(t *testing.T) {
	env := map[string]string{"DEVAPI_ADDR": ":9000", "DEVAPI_ACCESS_TTL": "30s"}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	cfg, err := LoadConfig([]string{"-s", "flag-secret", "-x", "ignored"}, lookup)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.AccessTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, "flag-secret", cfg.SecretKey)

	env["DEVAPI_REFRESH_TTL"] = "soon"
	_, err = LoadConfig(nil, lookup)
	require.Error(t, err)
}

package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/dealerclient/internal/client/client"
	"github.com/dmitrijs2005/dealerclient/internal/client/models"
	"github.com/dmitrijs2005/dealerclient/internal/logging"
)

type fakeAuth struct {
	loginUser string
	loginPass []byte
	passRef   []byte
	session   *models.Session
	loginErr  error

	logoutCalled bool
	logoutErr    error
}

func (f *fakeAuth) Login(_ context.Context, user string, pass []byte) (*models.Session, error) {
	f.loginUser, f.loginPass, f.passRef = user, append([]byte(nil), pass...), pass
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.session, nil
}

func (f *fakeAuth) Logout(context.Context) error {
	f.logoutCalled = true
	if f.logoutErr == nil {
		f.session = nil
	}
	return f.logoutErr
}

func (f *fakeAuth) Current(context.Context) (*models.Session, error) { return f.session, nil }

type fakeCatalog struct {
	products   map[int64]models.Product
	productErr error
	available  int
	availErr   error
	forgotten  bool
}

func (f *fakeCatalog) Product(_ context.Context, id int64) (*models.Product, error) {
	if f.productErr != nil {
		return nil, f.productErr
	}
	p, ok := f.products[id]
	if !ok {
		return nil, errNotFound
	}
	return &p, nil
}

func (f *fakeCatalog) AvailableCount(context.Context, int64) (int, error) {
	return f.available, f.availErr
}

func (f *fakeCatalog) DisplayInfo(_ context.Context, id int64) (models.DisplayInfo, error) {
	return f.products[id].DisplayInfo(), nil
}

func (f *fakeCatalog) CachedDisplayInfo(_ context.Context, id int64) (models.DisplayInfo, bool) {
	p, ok := f.products[id]
	return p.DisplayInfo(), ok
}

func (f *fakeCatalog) Forget(context.Context) error {
	f.forgotten = true
	return nil
}

type addCall struct {
	productID int64
	quantity  int
	price     float64
}

type updateCall struct {
	cartID   int64
	action   models.QuantityAction
	quantity int
}

type fakeCart struct {
	lines      []models.CartLine
	refreshErr error
	addErr     error
	updateErr  error
	pending    []error

	refreshes int
	adds      []addCall
	updates   []updateCall
	removed   []int64
	cleared   bool
	resets    int
	waits     int
}

func (f *fakeCart) Refresh(context.Context) ([]models.CartLine, error) {
	f.refreshes++
	return f.lines, f.refreshErr
}

func (f *fakeCart) AddItem(_ context.Context, productID int64, quantity int, price float64) error {
	f.adds = append(f.adds, addCall{productID, quantity, price})
	return f.addErr
}

func (f *fakeCart) UpdateItem(_ context.Context, cartID int64, action models.QuantityAction, quantity int) error {
	f.updates = append(f.updates, updateCall{cartID, action, quantity})
	return f.updateErr
}

func (f *fakeCart) RemoveItem(_ context.Context, cartID int64) error {
	f.removed = append(f.removed, cartID)
	return nil
}

func (f *fakeCart) ClearCart(context.Context) error {
	f.cleared = true
	f.lines = nil
	return nil
}

func (f *fakeCart) Items() []models.CartLine { return f.lines }
func (f *fakeCart) TotalAmount() float64     { return models.TotalAmount(f.lines) }
func (f *fakeCart) CartCount() int           { return models.ItemCount(f.lines) }
func (f *fakeCart) Wait()                    { f.waits++ }
func (f *fakeCart) Reset()                   { f.resets++ }

func (f *fakeCart) PendingErrors() []error {
	errs := f.pending
	f.pending = nil
	return errs
}

type fakeOrders struct {
	note   string
	order  *models.Order
	orders []models.Order
	err    error
}

func (f *fakeOrders) PlaceOrder(_ context.Context, note string) (*models.Order, error) {
	f.note = note
	return f.order, f.err
}

func (f *fakeOrders) ListOrders(context.Context) ([]models.Order, error) {
	return f.orders, f.err
}

type fakeWarranty struct {
	req models.WarrantyRequest
	out *models.Warranty
	err error
}

func (f *fakeWarranty) Register(_ context.Context, req models.WarrantyRequest) (*models.Warranty, error) {
	f.req = req
	return f.out, f.err
}

type testApp struct {
	*App
	auth     *fakeAuth
	catalog  *fakeCatalog
	cart     *fakeCart
	orders   *fakeOrders
	warranty *fakeWarranty
	buf      *bytes.Buffer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ta := &testApp{
		auth:     &fakeAuth{},
		catalog:  &fakeCatalog{products: map[int64]models.Product{}},
		cart:     &fakeCart{},
		orders:   &fakeOrders{},
		warranty: &fakeWarranty{},
		buf:      &bytes.Buffer{},
	}
	ta.App = &App{
		log:             logging.Discard(),
		authService:     ta.auth,
		catalogService:  ta.catalog,
		cartService:     ta.cart,
		orderService:    ta.orders,
		warrantyService: ta.warranty,
		reader:          bufio.NewReader(strings.NewReader("")),
		out:             ta.buf,
	}
	return ta
}

// stubAnswers makes getSimpleText return answers in order, then io.EOF.
func stubAnswers(t *testing.T, answers ...string) *[]string {
	t.Helper()
	var prompts []string
	orig := getSimpleText
	getSimpleText = func(_ *bufio.Reader, prompt string, _ io.Writer) (string, error) {
		prompts = append(prompts, prompt)
		if len(answers) == 0 {
			return "", io.EOF
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
	t.Cleanup(func() { getSimpleText = orig })
	return &prompts
}

func stubPassword(t *testing.T, pw []byte) {
	t.Helper()
	orig := getPassword
	getPassword = func(io.Writer) ([]byte, error) { return pw, nil }
	t.Cleanup(func() { getPassword = orig })
}

var errNotFound = &client.APIError{Kind: client.KindNotFound, Status: 404, Message: "not found"}

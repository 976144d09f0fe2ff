package devapi

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/dealerclient/internal/client/models"
	"github.com/dmitrijs2005/dealerclient/internal/shared"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateSerial    = errors.New("serial number already registered")
)

// Account is a seeded dealer login.
type Account struct {
	ID           int64
	Username     string
	DisplayName  string
	Roles        []string
	PasswordHash []byte
}

type refreshEntry struct {
	accountID int64
	expiresAt time.Time
}

// store is the in-memory state of the development API.
type store struct {
	mu sync.Mutex

	accounts   map[string]*Account
	refresh    map[string]refreshEntry
	generation uint64

	products map[int64]models.Product
	serials  map[int64]int

	carts      map[int64][]models.CartLine
	nextCartID int64

	orders      map[int64][]models.Order
	nextOrderID int64

	warranties     map[string]models.Warranty
	nextWarrantyID int64
}

func newStore() *store {
	return &store{
		accounts:       map[string]*Account{},
		refresh:        map[string]refreshEntry{},
		products:       map[int64]models.Product{},
		serials:        map[int64]int{},
		carts:          map[int64][]models.CartLine{},
		nextCartID:     1,
		orders:         map[int64][]models.Order{},
		nextOrderID:    1,
		warranties:     map[string]models.Warranty{},
		nextWarrantyID: 1,
	}
}

func (s *store) addAccount(id int64, username, displayName, password string, roles ...string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[strings.ToLower(username)] = &Account{
		ID:           id,
		Username:     username,
		DisplayName:  displayName,
		Roles:        roles,
		PasswordHash: hash,
	}
	return nil
}

func (s *store) addProduct(p models.Product, available int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	s.serials[p.ID] = available
}

func (s *store) authenticate(username, password string) (*Account, error) {
	s.mu.Lock()
	acc, ok := s.accounts[strings.ToLower(username)]
	s.mu.Unlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

func (s *store) accountByID(id int64) (*Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.ID == id {
			return acc, true
		}
	}
	return nil, false
}

func (s *store) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *store) bumpGeneration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

func (s *store) issueRefreshToken(accountID int64, ttl time.Duration) (string, error) {
	token, err := shared.MakeRandHexString(32)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[token] = refreshEntry{accountID: accountID, expiresAt: time.Now().Add(ttl)}
	return token, nil
}

// consumeRefreshToken removes token and returns its account. Refresh tokens
// are single use.
func (s *store) consumeRefreshToken(token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.refresh[token]
	if !ok {
		return 0, ErrInvalidToken
	}
	delete(s.refresh, token)
	if time.Now().After(e.expiresAt) {
		return 0, ErrInvalidToken
	}
	return e.accountID, nil
}

func (s *store) revokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.refresh)
}

func (s *store) product(id int64) (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

func (s *store) availableCount(id int64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.serials[id]
	return n, ok
}

// cart lines are stored without display fields, like the real API.
func (s *store) cart(dealerID int64) []models.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.carts[dealerID])
}

func (s *store) addToCart(dealerID, productID int64, quantity int, unitPrice float64) (models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return models.CartLine{}, ErrNotFound
	}

	lines := s.carts[dealerID]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity += quantity
			lines[i].UnitPrice = unitPrice
			lines[i].Recalculate()
			return lines[i], nil
		}
	}

	line := models.CartLine{
		CartID:    s.nextCartID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		AddedAt:   time.Now().UTC(),
	}
	line.Recalculate()
	s.nextCartID++
	s.carts[dealerID] = append(lines, line)
	return line, nil
}

// findLine returns the owner and index of cartID.
func (s *store) findLine(cartID int64) (int64, int, bool) {
	for dealer, lines := range s.carts {
		for i := range lines {
			if lines[i].CartID == cartID {
				return dealer, i, true
			}
		}
	}
	return 0, 0, false
}

// updateQuantity applies action to the line. removed is true when the line
// is gone afterwards.
func (s *store) updateQuantity(dealerID, cartID int64, action models.QuantityAction, quantity int) (line models.CartLine, removed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, idx, ok := s.findLine(cartID)
	if !ok {
		return models.CartLine{}, false, ErrNotFound
	}
	if owner != dealerID {
		return models.CartLine{}, false, ErrForbidden
	}

	lines := s.carts[owner]
	next, remove, err := models.ApplyQuantity(lines[idx].Quantity, action, quantity)
	if err != nil {
		return models.CartLine{}, false, err
	}
	if remove {
		s.carts[owner] = slices.Delete(lines, idx, idx+1)
		return models.CartLine{}, true, nil
	}
	lines[idx].Quantity = next
	lines[idx].Recalculate()
	return lines[idx], false, nil
}

func (s *store) removeLine(dealerID, cartID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, idx, ok := s.findLine(cartID)
	if !ok {
		return ErrNotFound
	}
	if owner != dealerID {
		return ErrForbidden
	}
	s.carts[owner] = slices.Delete(s.carts[owner], idx, idx+1)
	return nil
}

func (s *store) clearCart(dealerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, dealerID)
}

func (s *store) createOrder(req models.OrderRequest) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := models.Order{
		OrderID:     s.nextOrderID,
		OrderCode:   "ORD-" + strings.ToUpper(uuid.NewString()[:8]),
		DealerID:    req.DealerID,
		Status:      "PENDING",
		TotalAmount: req.TotalAmount,
		Note:        req.Note,
		Items:       slices.Clone(req.Items),
		CreatedAt:   time.Now().UTC(),
	}
	s.nextOrderID++
	s.orders[req.DealerID] = append(s.orders[req.DealerID], o)
	return o
}

func (s *store) listOrders(dealerID int64) []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := slices.Clone(s.orders[dealerID])
	if orders == nil {
		orders = []models.Order{}
	}
	return orders
}

func (s *store) registerWarranty(req models.WarrantyRequest) (models.Warranty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToUpper(req.SerialNumber)
	if _, dup := s.warranties[key]; dup {
		return models.Warranty{}, ErrDuplicateSerial
	}
	w := models.Warranty{
		WarrantyID:   s.nextWarrantyID,
		WarrantyCode: "WR-" + strings.ToUpper(uuid.NewString()[:8]),
		SerialNumber: req.SerialNumber,
		Status:       "ACTIVE",
		ExpiresAt:    req.PurchaseDate.AddDate(1, 0, 0).UTC(),
	}
	s.nextWarrantyID++
	s.warranties[key] = w
	return w, nil
}

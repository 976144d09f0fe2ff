package services

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/dealerclient/internal/client/client"
	"github.com/dmitrijs2005/dealerclient/internal/client/credentials"
	"github.com/dmitrijs2005/dealerclient/internal/client/models"
	"github.com/dmitrijs2005/dealerclient/internal/logging"
)

// DefaultSyncTimeout bounds a background quantity update.
const DefaultSyncTimeout = 15 * time.Second

// DegradedError is returned by AddItem when the server could not be reached
// and the item was merged into the local mirror only. The mirror may differ
// from the server until the next Refresh.
type DegradedError struct {
	Err error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("cart updated locally only: %v", e.Err)
}

func (e *DegradedError) Unwrap() error { return e.Err }

// CartService keeps a local mirror of the dealer's cart in sync with the
// server.
//
// Quantity updates are optimistic: UpdateItem changes the mirror at once
// and sends the mutation in the background. Every mutation of a line gets
// the next sequence number of that line; a reply is applied to the mirror
// only if it carries the latest number, so late replies cannot undo newer
// changes. Refetches follow the same rule: lines mutated after the GET was
// issued keep their local state, and a refetch older than the last applied
// one is dropped.
type CartService interface {
	Refresh(ctx context.Context) ([]models.CartLine, error)
	AddItem(ctx context.Context, productID int64, quantity int, unitPrice float64) error
	UpdateItem(ctx context.Context, cartID int64, action models.QuantityAction, quantity int) error
	RemoveItem(ctx context.Context, cartID int64) error
	ClearCart(ctx context.Context) error

	Items() []models.CartLine
	TotalAmount() float64
	CartCount() int

	// Wait blocks until every background mutation has finished.
	Wait()
	// PendingErrors returns and forgets the failures of background mutations.
	PendingErrors() []error
	// Reset forgets the mirror, e.g. after logout.
	Reset()
}

type cartService struct {
	client      client.Client
	store       credentials.Store
	catalog     CatalogService
	log         logging.Logger
	syncTimeout time.Duration
	now         func() time.Time

	mu          sync.Mutex
	lines       []models.CartLine
	seq         map[int64]uint64
	pending     []error
	nextLocalID int64
	// refreshGen counts issued refetches; appliedGen is the newest one
	// reflected in lines.
	refreshGen uint64
	appliedGen uint64

	inflight sync.WaitGroup
}

// NewCartService constructs a CartService. catalog may be nil, in which case
// lines are not enriched.
func NewCartService(c client.Client, store credentials.Store, catalog CatalogService, syncTimeout time.Duration, log logging.Logger) CartService {
	if log == nil {
		log = logging.Discard()
	}
	if syncTimeout <= 0 {
		syncTimeout = DefaultSyncTimeout
	}
	return &cartService{
		client:      c,
		store:       store,
		catalog:     catalog,
		log:         log.With("service", "cart"),
		syncTimeout: syncTimeout,
		now:         time.Now,
		seq:         make(map[int64]uint64),
		nextLocalID: -1,
	}
}

func (s *cartService) Refresh(ctx context.Context) ([]models.CartLine, error) {
	dealer, err := dealerID(ctx, s.store)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.refreshGen++
	gen := s.refreshGen
	issued := maps.Clone(s.seq)
	s.mu.Unlock()

	lines, err := s.client.GetCart(ctx, dealer)
	if err != nil {
		return nil, err
	}
	s.enrich(ctx, lines)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen < s.appliedGen {
		s.log.Debug(ctx, "discarding stale cart refetch", "gen", gen, "applied", s.appliedGen)
		return slices.Clone(s.lines), nil
	}
	s.appliedGen = gen
	s.lines = s.reconcile(lines, issued)

	s.log.Debug(ctx, "cart refreshed", "dealer_id", dealer, "lines", len(s.lines))
	return slices.Clone(s.lines), nil
}

// reconcile merges a refetched cart into the mirror. issued holds the line
// sequence numbers at the time the GET was sent; a line whose number moved
// since then keeps its local state, or stays absent if it was removed
// locally. Must be called with mu held.
func (s *cartService) reconcile(fetched []models.CartLine, issued map[int64]uint64) []models.CartLine {
	changed := func(cartID int64) bool { return s.seq[cartID] != issued[cartID] }

	out := make([]models.CartLine, 0, len(fetched))
	seen := make(map[int64]bool, len(fetched))
	for _, l := range fetched {
		seen[l.CartID] = true
		if !changed(l.CartID) {
			out = append(out, l)
			continue
		}
		if idx := s.indexOf(l.CartID); idx >= 0 {
			out = append(out, s.lines[idx])
		}
	}
	for _, l := range s.lines {
		if !seen[l.CartID] && changed(l.CartID) {
			out = append(out, l)
		}
	}
	return out
}

// supersedeRefetches makes every refetch issued so far stale. Must be
// called with mu held.
func (s *cartService) supersedeRefetches() {
	s.refreshGen++
	s.appliedGen = s.refreshGen
}

func (s *cartService) AddItem(ctx context.Context, productID int64, quantity int, unitPrice float64) error {
	if quantity <= 0 {
		return validationError("invalid quantity", client.FieldError{Field: "quantity", Message: "quantity must be positive"})
	}
	dealer, err := dealerID(ctx, s.store)
	if err != nil {
		return err
	}

	err = s.client.AddCartItem(ctx, models.AddCartItemRequest{
		DealerID:  dealer,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	})
	if err == nil {
		_, err = s.Refresh(ctx)
		return err
	}
	if client.KindOf(err) != client.KindNetwork {
		return err
	}

	s.log.Warn(ctx, "cart add failed, merging locally", "product_id", productID, "error", err)
	s.mergeLocal(ctx, productID, quantity, unitPrice)
	return &DegradedError{Err: err}
}

// mergeLocal adds quantity to the line of productID, or appends a local line
// with a negative cart id.
func (s *cartService) mergeLocal(ctx context.Context, productID int64, quantity int, unitPrice float64) {
	var info models.DisplayInfo
	var haveInfo bool
	if s.catalog != nil {
		info, haveInfo = s.catalog.CachedDisplayInfo(ctx, productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.seq[s.lines[i].CartID]++
			s.lines[i].Quantity += quantity
			s.lines[i].Recalculate()
			return
		}
	}

	line := models.CartLine{
		CartID:    s.nextLocalID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		AddedAt:   s.now(),
	}
	s.nextLocalID--
	s.seq[line.CartID]++
	line.Recalculate()
	if haveInfo {
		line.ApplyDisplayInfo(info)
	}
	s.lines = append(s.lines, line)
}

func (s *cartService) UpdateItem(ctx context.Context, cartID int64, action models.QuantityAction, quantity int) error {
	if _, err := models.ParseQuantityAction(string(action)); err != nil {
		return validationError(err.Error(), client.FieldError{Field: "action", Message: err.Error()})
	}

	s.mu.Lock()
	idx := s.indexOf(cartID)
	if idx < 0 {
		s.mu.Unlock()
		return &client.APIError{Kind: client.KindNotFound, Message: fmt.Sprintf("cart line %d not found", cartID)}
	}

	line := s.lines[idx]
	next, remove, err := models.ApplyQuantity(line.Quantity, action, quantity)
	if err != nil {
		s.mu.Unlock()
		return validationError(err.Error())
	}

	s.seq[cartID]++
	seq := s.seq[cartID]
	if remove {
		s.lines = slices.Delete(s.lines, idx, idx+1)
	} else {
		s.lines[idx].Quantity = next
		s.lines[idx].Recalculate()
	}
	s.mu.Unlock()

	if line.IsLocal() {
		return nil
	}

	s.inflight.Add(1)
	go s.sync(context.WithoutCancel(ctx), cartID, seq, action, quantity, remove)
	return nil
}

// sync sends one optimistic mutation and reconciles the mirror with the
// server's echo if no newer mutation of the line was issued meanwhile.
func (s *cartService) sync(ctx context.Context, cartID int64, seq uint64, action models.QuantityAction, quantity int, remove bool) {
	defer s.inflight.Done()

	ctx, cancel := context.WithTimeout(ctx, s.syncTimeout)
	defer cancel()

	var (
		echo *models.CartLine
		err  error
	)
	if remove {
		err = s.client.RemoveCartItem(ctx, cartID)
	} else {
		echo, err = s.client.UpdateCartItemQuantity(ctx, cartID, action, quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.log.Warn(ctx, "cart line sync failed", "cart_id", cartID, "action", action, "seq", seq, "error", err)
		s.pending = append(s.pending, fmt.Errorf("sync cart line %d: %w", cartID, err))
		return
	}
	if s.seq[cartID] != seq {
		s.log.Debug(ctx, "discarding stale cart reply", "cart_id", cartID, "seq", seq, "latest", s.seq[cartID])
		return
	}
	if echo == nil || remove {
		return
	}

	idx := s.indexOf(cartID)
	if idx < 0 {
		return
	}
	l := &s.lines[idx]
	l.Quantity = echo.Quantity
	if echo.UnitPrice > 0 {
		l.UnitPrice = echo.UnitPrice
	}
	if echo.Subtotal > 0 {
		l.Subtotal = echo.Subtotal
	} else {
		l.Recalculate()
	}
}

func (s *cartService) RemoveItem(ctx context.Context, cartID int64) error {
	s.mu.Lock()
	s.seq[cartID]++
	if cartID < 0 {
		if idx := s.indexOf(cartID); idx >= 0 {
			s.lines = slices.Delete(s.lines, idx, idx+1)
		}
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.client.RemoveCartItem(ctx, cartID); err != nil {
		return err
	}
	_, err := s.Refresh(ctx)
	return err
}

// ClearCart empties the mirror whatever the server answers and returns the
// server's error, if any.
func (s *cartService) ClearCart(ctx context.Context) error {
	dealer, err := dealerID(ctx, s.store)
	if err == nil {
		err = s.client.ClearCart(ctx, dealer)
	}

	s.mu.Lock()
	for _, l := range s.lines {
		s.seq[l.CartID]++
	}
	s.lines = []models.CartLine{}
	s.supersedeRefetches()
	s.mu.Unlock()

	if err != nil {
		s.log.Warn(ctx, "remote cart clear failed", "error", err)
	}
	return err
}

func (s *cartService) Items() []models.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lines)
}

func (s *cartService) TotalAmount() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.TotalAmount(s.lines)
}

func (s *cartService) CartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.ItemCount(s.lines)
}

func (s *cartService) Wait() {
	s.inflight.Wait()
}

func (s *cartService) PendingErrors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	errs := s.pending
	s.pending = nil
	return errs
}

func (s *cartService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.pending = nil
	s.supersedeRefetches()
}

func (s *cartService) indexOf(cartID int64) int {
	return slices.IndexFunc(s.lines, func(l models.CartLine) bool { return l.CartID == cartID })
}

// enrich fills missing display fields. Lookup failures leave the line as is.
func (s *cartService) enrich(ctx context.Context, lines []models.CartLine) {
	if s.catalog == nil {
		return
	}
	for i := range lines {
		if !lines[i].NeedsDisplayInfo() {
			continue
		}
		info, err := s.catalog.DisplayInfo(ctx, lines[i].ProductID)
		if err != nil {
			s.log.Warn(ctx, "display info lookup failed", "product_id", lines[i].ProductID, "error", err)
			continue
		}
		lines[i].ApplyDisplayInfo(info)
	}
}

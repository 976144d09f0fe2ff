package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/dealerclient/internal/client/client"
	"github.com/dmitrijs2005/dealerclient/internal/client/models"
	"github.com/dmitrijs2005/dealerclient/internal/client/repositories/products"
	"github.com/dmitrijs2005/dealerclient/internal/logging"
	"golang.org/x/sync/singleflight"
)

// displayFields is the field projection requested when only display
// metadata is needed.
var displayFields = []string{"name", "image", "description"}

// displayLookupTimeout bounds a shared display lookup, which runs detached
// from the caller that started it.
const displayLookupTimeout = 10 * time.Second

// CatalogService reads products. Display metadata is memoized per product
// id in memory and in the local product cache.
type CatalogService interface {
	Product(ctx context.Context, productID int64) (*models.Product, error)
	AvailableCount(ctx context.Context, productID int64) (int, error)
	DisplayInfo(ctx context.Context, productID int64) (models.DisplayInfo, error)
	// CachedDisplayInfo never touches the network.
	CachedDisplayInfo(ctx context.Context, productID int64) (models.DisplayInfo, bool)
	Forget(ctx context.Context) error
}

type catalogService struct {
	client client.Client
	cache  products.Repository
	log    logging.Logger

	group singleflight.Group
	mu    sync.Mutex
	memo  map[int64]models.DisplayInfo
}

// NewCatalogService constructs a CatalogService. cache may be nil.
func NewCatalogService(c client.Client, cache products.Repository, log logging.Logger) CatalogService {
	if log == nil {
		log = logging.Discard()
	}
	return &catalogService{
		client: c,
		cache:  cache,
		log:    log.With("service", "catalog"),
		memo:   make(map[int64]models.DisplayInfo),
	}
}

func (s *catalogService) Product(ctx context.Context, productID int64) (*models.Product, error) {
	p, err := s.client.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, p.DisplayInfo())
	return p, nil
}

func (s *catalogService) AvailableCount(ctx context.Context, productID int64) (int, error) {
	return s.client.GetAvailableCount(ctx, productID)
}

func (s *catalogService) DisplayInfo(ctx context.Context, productID int64) (models.DisplayInfo, error) {
	if info, ok := s.memoized(productID); ok {
		return info, nil
	}

	v, err, _ := s.group.Do(strconv.FormatInt(productID, 10), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), displayLookupTimeout)
		defer cancel()

		if info, ok := s.memoized(productID); ok {
			return info, nil
		}
		if info, ok := s.fromCache(ctx, productID); ok {
			s.mu.Lock()
			s.memo[productID] = info
			s.mu.Unlock()
			return info, nil
		}

		p, err := s.client.GetProduct(ctx, productID, displayFields...)
		if err != nil {
			return models.DisplayInfo{}, err
		}
		info := p.DisplayInfo()
		s.remember(ctx, info)
		return info, nil
	})
	if err != nil {
		return models.DisplayInfo{}, err
	}
	return v.(models.DisplayInfo), nil
}

func (s *catalogService) CachedDisplayInfo(ctx context.Context, productID int64) (models.DisplayInfo, bool) {
	if info, ok := s.memoized(productID); ok {
		return info, true
	}
	return s.fromCache(ctx, productID)
}

// Forget drops the memo and the persistent cache.
func (s *catalogService) Forget(ctx context.Context) error {
	s.mu.Lock()
	s.memo = make(map[int64]models.DisplayInfo)
	s.mu.Unlock()
	if s.cache == nil {
		return nil
	}
	return s.cache.Clear(ctx)
}

func (s *catalogService) memoized(productID int64) (models.DisplayInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.memo[productID]
	return info, ok
}

func (s *catalogService) fromCache(ctx context.Context, productID int64) (models.DisplayInfo, bool) {
	if s.cache == nil {
		return models.DisplayInfo{}, false
	}
	info, err := s.cache.Get(ctx, productID)
	if err != nil {
		s.log.Warn(ctx, "product cache lookup failed", "product_id", productID, "error", err)
		return models.DisplayInfo{}, false
	}
	if info == nil {
		return models.DisplayInfo{}, false
	}
	return *info, true
}

func (s *catalogService) remember(ctx context.Context, info models.DisplayInfo) {
	s.mu.Lock()
	s.memo[info.ProductID] = info
	s.mu.Unlock()

	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, info); err != nil {
		s.log.Warn(ctx, "failed to cache product", "product_id", info.ProductID, "error", err)
	}
}

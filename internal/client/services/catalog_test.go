package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/dealerclient/internal/client/client"
	"github.com/dmitrijs2005/dealerclient/internal/client/models"
	"github.com/dmitrijs2005/dealerclient/internal/client/repositories/products"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_DisplayInfoCollapsesConcurrentLookups(t *testing.T) {
	fc := newFakeClient()
	fc.products[7] = models.Product{ID: 7, Name: "Bình nóng lạnh", Image: "b.png", Description: "30L"}
	fc.productDelay = 50 * time.Millisecond
	svc := NewCatalogService(fc, nil, nil)

	var wg sync.WaitGroup
	results := make([]models.DisplayInfo, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := svc.DisplayInfo(context.Background(), 7)
			assert.NoError(t, err)
			results[i] = info
		}(i)
	}
	wg.Wait()

	for _, info := range results {
		assert.Equal(t, "Bình nóng lạnh", info.Name)
	}
	assert.Equal(t, 1, fc.productCalls(7))

	_, err := svc.DisplayInfo(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, fc.productCalls(7))
}

func TestCatalog_CanceledCallerDoesNotFailJoinedLookups(t *testing.T) {
	fc := newFakeClient()
	fc.products[7] = models.Product{ID: 7, Name: "Bình nóng lạnh", Image: "b.png", Description: "30L"}
	fc.productDelay = 100 * time.Millisecond
	svc := NewCatalogService(fc, nil, nil)

	first, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.DisplayInfo(first, 7)
		firstDone <- err
	}()
	require.Eventually(t, func() bool { return fc.productCalls(7) == 1 }, time.Second, time.Millisecond)

	type result struct {
		info models.DisplayInfo
		err  error
	}
	joined := make(chan result, 1)
	go func() {
		info, err := svc.DisplayInfo(context.Background(), 7)
		joined <- result{info, err}
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	res := <-joined
	require.NoError(t, res.err)
	assert.Equal(t, "Bình nóng lạnh", res.info.Name)
	<-firstDone
	assert.Equal(t, 1, fc.productCalls(7))
}

func TestCatalog_DisplayInfoSurvivesRestartViaCache(t *testing.T) {
	db := setupDB(t)
	fc := newFakeClient()
	fc.products[7] = models.Product{ID: 7, Name: "Quạt", Image: "q.png", Description: "d"}

	first := NewCatalogService(fc, products.NewSQLiteRepository(db, time.Hour), nil)
	_, err := first.DisplayInfo(context.Background(), 7)
	require.NoError(t, err)

	second := NewCatalogService(fc, products.NewSQLiteRepository(db, time.Hour), nil)
	info, err := second.DisplayInfo(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Quạt", info.Name)
	assert.Equal(t, 1, fc.productCalls(7))

	cached, ok := second.CachedDisplayInfo(context.Background(), 7)
	assert.True(t, ok)
	assert.Equal(t, "q.png", cached.Image)

	require.NoError(t, second.Forget(context.Background()))
	_, ok = second.CachedDisplayInfo(context.Background(), 7)
	assert.False(t, ok)
}

func TestCatalog_ErrorsAreNotMemoized(t *testing.T) {
	fc := newFakeClient()
	svc := NewCatalogService(fc, nil, nil)

	_, err := svc.DisplayInfo(context.Background(), 3)
	require.ErrorIs(t, err, client.ErrNotFound)

	fc.mu.Lock()
	fc.products[3] = models.Product{ID: 3, Name: "later"}
	fc.mu.Unlock()

	info, err := svc.DisplayInfo(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "later", info.Name)
	assert.Equal(t, 2, fc.productCalls(3))
}

func TestCatalog_ProductWarmsMemo(t *testing.T) {
	fc := newFakeClient()
	fc.products[5] = models.Product{ID: 5, Name: "Bếp từ", Price: 1000, DealerPrice: 900}
	svc := NewCatalogService(fc, nil, nil)

	p, err := svc.Product(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 900.0, p.PriceFor())

	info, ok := svc.CachedDisplayInfo(context.Background(), 5)
	assert.True(t, ok)
	assert.Equal(t, "Bếp từ", info.Name)

	n, err := svc.AvailableCount(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

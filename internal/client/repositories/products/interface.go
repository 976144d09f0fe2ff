package products

import (
	"context"

	"github.com/dmitrijs2005/dealerclient/internal/client/models"
)

// Repository stores DisplayInfo keyed by product id. Get returns (nil, nil)
// when the product is not cached or its entry is older than the repository's
// max age.
type Repository interface {
	Get(ctx context.Context, productID int64) (*models.DisplayInfo, error)
	Put(ctx context.Context, info models.DisplayInfo) error
	Clear(ctx context.Context) error
}

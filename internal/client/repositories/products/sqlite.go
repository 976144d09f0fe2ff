package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dealerclient/internal/client/models"
	"github.com/dmitrijs2005/dealerclient/internal/dbx"
)

type SQLiteRepository struct {
	db     dbx.DBTX
	maxAge time.Duration
	now    func() time.Time
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository binds the cache to db. A maxAge of zero keeps entries
// forever.
func NewSQLiteRepository(db dbx.DBTX, maxAge time.Duration) *SQLiteRepository {
	return &SQLiteRepository{db: db, maxAge: maxAge, now: time.Now}
}

func (r *SQLiteRepository) Get(ctx context.Context, productID int64) (*models.DisplayInfo, error) {
	info := models.DisplayInfo{ProductID: productID}
	var cachedAt time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT name, image, description, cached_at FROM product_cache WHERE product_id = ?`, productID).
		Scan(&info.Name, &info.Image, &info.Description, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached product %d: %w", productID, err)
	}
	if r.maxAge > 0 && r.now().Sub(cachedAt) > r.maxAge {
		return nil, nil
	}
	return &info, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, info models.DisplayInfo) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO product_cache (product_id, name, image, description, cached_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET
			name = excluded.name,
			image = excluded.image,
			description = excluded.description,
			cached_at = excluded.cached_at
	`, info.ProductID, info.Name, info.Image, info.Description, r.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to cache product %d: %w", info.ProductID, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM product_cache`); err != nil {
		return fmt.Errorf("failed to clear product cache: %w", err)
	}
	return nil
}

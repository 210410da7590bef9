package repository

import (
	"context"

	"github.com/shopfront/catalog-api/internal/domain"
)

// ProductRepository persists catalog products in a document collection
// keyed by store-assigned opaque string ids.
type ProductRepository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	// InsertProduct stores a new product and returns the assigned id.
	InsertProduct(ctx context.Context, product *domain.Product) (string, error)
	// UpdateProduct applies a partial update. Returns ErrNotFound when no
	// document matches id.
	UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) error
	// DeleteProduct removes a document. Deleting an absent id is not an
	// error; the operation is idempotent.
	DeleteProduct(ctx context.Context, id string) error
}

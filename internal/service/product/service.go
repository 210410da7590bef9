package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/shopfront/catalog-api/internal/domain"
	"github.com/shopfront/catalog-api/internal/repository"
)

// ErrInvalidInput marks payload validation failures so handlers can map
// them to 400 rather than 500.
var ErrInvalidInput = errors.New("invalid product payload")

// Service orchestrates catalog CRUD against the document store, stamping
// timestamps and validating payloads before they reach the repository.
type Service struct {
	products repository.ProductRepository
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time
}

// New constructs a Service. timeout bounds each store call; zero disables
// the bound.
func New(products repository.ProductRepository, logger *slog.Logger, timeout time.Duration) Service {
	return Service{products: products, logger: logger, timeout: timeout, now: time.Now}
}

// CreateInput is the explicit create payload. Unknown fields are rejected
// at decode time by the handler.
type CreateInput struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Price       float64              `json:"price"`
	Category    string               `json:"category"`
	ImageURL    string               `json:"imageUrl"`
	Stock       int                  `json:"stock"`
	Status      domain.ProductStatus `json:"status"`
}

func (in CreateInput) validate() error {
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if in.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
	}
	if in.Status != "" && !in.Status.Valid() {
		return fmt.Errorf("%w: status must be active or inactive", ErrInvalidInput)
	}
	return nil
}

// UpdateInput is the explicit partial-update payload. Nil fields are left
// untouched.
type UpdateInput struct {
	Name        *string               `json:"name"`
	Description *string               `json:"description"`
	Price       *float64              `json:"price"`
	Category    *string               `json:"category"`
	ImageURL    *string               `json:"imageUrl"`
	Stock       *int                  `json:"stock"`
	Status      *domain.ProductStatus `json:"status"`
}

func (in UpdateInput) validate() error {
	if in.Name == nil && in.Description == nil && in.Price == nil &&
		in.Category == nil && in.ImageURL == nil && in.Stock == nil && in.Status == nil {
		return fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}
	if in.Name != nil && *in.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}
	if in.Price != nil && *in.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if in.Stock != nil && *in.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
	}
	if in.Status != nil && !in.Status.Valid() {
		return fmt.Errorf("%w: status must be active or inactive", ErrInvalidInput)
	}
	return nil
}

// List returns the full catalog. The result is never nil so handlers
// serialize an empty collection as [].
func (s Service) List(ctx context.Context) ([]domain.Product, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// Create validates the payload, stamps creation time on both timestamps,
// and inserts. The returned product carries the store-assigned id.
func (s Service) Create(ctx context.Context, input CreateInput) (*domain.Product, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	status := input.Status
	if status == "" {
		status = domain.ProductActive
	}
	now := s.now().UTC()
	product := &domain.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		ImageURL:    input.ImageURL,
		Stock:       input.Stock,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	id, err := s.products.InsertProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	product.ID = id
	s.logger.Info("product created", "product_id", id)
	return product, nil
}

// Update applies a partial update with a refreshed updatedAt, then
// re-reads the document so the caller sees the stored state. A missing id
// surfaces as repository.ErrNotFound.
func (s Service) Update(ctx context.Context, id string, input UpdateInput) (*domain.Product, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	patch := domain.ProductPatch{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		ImageURL:    input.ImageURL,
		Stock:       input.Stock,
		Status:      input.Status,
		UpdatedAt:   s.now().UTC(),
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.products.UpdateProduct(ctx, id, patch); err != nil {
		return nil, err
	}
	product, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("product updated", "product_id", id)
	return product, nil
}

// Delete removes a product. Deleting an id that no longer exists still
// succeeds; the operation is idempotent.
func (s Service) Delete(ctx context.Context, id string) error {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", "product_id", id)
	return nil
}

func (s Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

package domain

import "time"

// ProductStatus restricts a product to the two supported lifecycle states.
type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
)

// Valid reports whether the status is one of the supported values.
func (s ProductStatus) Valid() bool {
	return s == ProductActive || s == ProductInactive
}

// Product is a catalog entry. ID is assigned by the document store on
// insert and immutable afterwards. CreatedAt is set once; UpdatedAt is
// refreshed on every update.
type Product struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Price       float64       `json:"price"`
	Category    string        `json:"category"`
	ImageURL    string        `json:"imageUrl"`
	Stock       int           `json:"stock"`
	Status      ProductStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// ProductPatch describes a partial update. Nil fields are left untouched;
// UpdatedAt is always stamped by the service before the patch is applied.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *string
	ImageURL    *string
	Stock       *int
	Status      *ProductStatus
	UpdatedAt   time.Time
}

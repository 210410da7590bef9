// Package mongo implements the repository interfaces on top of a MongoDB
// database.
package mongo

import (
	"go.mongodb.org/mongo-driver/mongo"
)

const productsCollection = "products"

// Repository provides document store access for the catalog.
type Repository struct {
	products *mongo.Collection
}

// New wraps a connected database handle.
func New(db *mongo.Database) *Repository {
	return &Repository{products: db.Collection(productsCollection)}
}

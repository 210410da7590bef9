package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shopfront/catalog-api/internal/domain"
	"github.com/shopfront/catalog-api/internal/repository"
)

// productDoc is the stored shape of a product. The hex of _id becomes the
// public id; everything else maps one to one onto domain.Product.
type productDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       float64              `bson:"price"`
	Category    string               `bson:"category"`
	ImageURL    string               `bson:"imageUrl"`
	Stock       int                  `bson:"stock"`
	Status      domain.ProductStatus `bson:"status"`
	CreatedAt   primitive.DateTime   `bson:"createdAt"`
	UpdatedAt   primitive.DateTime   `bson:"updatedAt"`
}

func (d productDoc) toDomain() domain.Product {
	return domain.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Category:    d.Category,
		ImageURL:    d.ImageURL,
		Stock:       d.Stock,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt.Time().UTC(),
		UpdatedAt:   d.UpdatedAt.Time().UTC(),
	}
}

func docFromDomain(p *domain.Product) productDoc {
	return productDoc{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		Stock:       p.Stock,
		Status:      p.Status,
		CreatedAt:   primitive.NewDateTimeFromTime(p.CreatedAt),
		UpdatedAt:   primitive.NewDateTimeFromTime(p.UpdatedAt),
	}
}

// ListProducts returns every document in the products collection.
func (r *Repository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	cursor, err := r.products.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.toDomain())
	}
	return products, nil
}

// GetProductByID fetches one document. Ids that do not parse as ObjectIDs
// cannot exist in the collection and map to ErrNotFound.
func (r *Repository) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	var doc productDoc
	if err := r.products.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	product := doc.toDomain()
	return &product, nil
}

// InsertProduct stores a new product and returns the generated id.
func (r *Repository) InsertProduct(ctx context.Context, product *domain.Product) (string, error) {
	res, err := r.products.InsertOne(ctx, docFromDomain(product))
	if err != nil {
		return "", fmt.Errorf("insert product: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert product: unexpected id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

// UpdateProduct applies the non-nil patch fields via $set.
func (r *Repository) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	set := bson.M{"updatedAt": primitive.NewDateTimeFromTime(patch.UpdatedAt)}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.ImageURL != nil {
		set["imageUrl"] = *patch.ImageURL
	}
	if patch.Stock != nil {
		set["stock"] = *patch.Stock
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	res, err := r.products.UpdateByID(ctx, oid, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update product %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteProduct removes a document. Absent or unparseable ids are treated
// as already deleted.
func (r *Repository) DeleteProduct(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := r.products.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}

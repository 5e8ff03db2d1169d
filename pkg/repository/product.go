package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/comforty/pkg/checkout"
	"github.com/example/comforty/pkg/models"
)

// ProductRepository reads catalog documents and owns their stock and
// availability fields.
type ProductRepository struct {
	mongo *MongoRepository
}

func NewProductRepository(mongo *MongoRepository) *ProductRepository {
	return &ProductRepository{mongo: mongo}
}

func (r *ProductRepository) collection() *mongo.Collection {
	return r.mongo.Collection(CollectionProducts)
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &checkout.NotFoundError{Entity: "product", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	cursor, err := r.collection().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := make(map[string]*models.Product, len(ids))
	for cursor.Next(ctx) {
		var product models.Product
		if err := cursor.Decode(&product); err != nil {
			return nil, err
		}
		products[product.ID] = &product
	}
	return products, cursor.Err()
}

// Deduct decrements stock in a single guarded update. The stock >= quantity
// filter makes a deduction that would go negative match nothing, which is
// surfaced as ErrInsufficientStock rather than clamped.
func (r *ProductRepository) Deduct(ctx context.Context, productID string, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("deduct quantity must be positive, got %d", quantity)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var product models.Product
	err := r.collection().FindOneAndUpdate(ctx,
		bson.M{"_id": productID, "stock": bson.M{"$gte": quantity}},
		bson.M{
			"$inc": bson.M{"stock": -quantity},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
		opts).Decode(&product)

	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, ferr := r.FindByID(ctx, productID); ferr != nil {
			return ferr
		}
		return checkout.ErrInsufficientStock
	}
	if err != nil {
		return err
	}

	if product.Stock <= 0 && product.IsAvailable {
		_, err = r.collection().UpdateOne(ctx,
			bson.M{"_id": productID},
			bson.M{"$set": bson.M{"is_available": false}})
	}
	return err
}

// LowStock lists available products at or below the given threshold, for
// the admin dashboard.
func (r *ProductRepository) LowStock(ctx context.Context, threshold int64) ([]models.Product, error) {
	cursor, err := r.collection().Find(ctx, bson.M{
		"stock":        bson.M{"$lte": threshold},
		"is_available": true,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/example/comforty/pkg/checkout"
	"github.com/example/comforty/pkg/models"
)

// UserRepository is read-only here: accounts are created and managed by the
// identity service.
type UserRepository struct {
	mongo *MongoRepository
}

func NewUserRepository(mongo *MongoRepository) *UserRepository {
	return &UserRepository{mongo: mongo}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.mongo.Collection(CollectionUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &checkout.NotFoundError{Entity: "user", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	return r.mongo.Collection(CollectionUsers).CountDocuments(ctx, bson.M{})
}

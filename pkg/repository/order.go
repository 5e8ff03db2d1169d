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

// OrderRepository persists orders in the orders collection. The payment
// status transitions are single conditional updates so that the two card
// completion channels cannot both claim the same order.
type OrderRepository struct {
	mongo *MongoRepository
}

func NewOrderRepository(mongo *MongoRepository) *OrderRepository {
	return &OrderRepository{mongo: mongo}
}

func (r *OrderRepository) collection() *mongo.Collection {
	return r.mongo.Collection(CollectionOrders)
}

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	_, err := r.collection().InsertOne(ctx, order)
	return err
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &checkout.NotFoundError{Entity: "order", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) FindByUser(ctx context.Context, userID string) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection().Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) FindAll(ctx context.Context) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) SetIntentID(ctx context.Context, id, intentID string) error {
	_, err := r.collection().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"intent_id": intentID, "updated_at": time.Now().UTC()}})
	return err
}

// MarkPaid performs the pending-to-paid compare-and-swap. The filter and the
// update are one Mongo operation, so exactly one concurrent caller observes
// claimed=true; the rest get the already-paid order back.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string) (*models.Order, bool, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	err := r.collection().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "payment_status": bson.M{"$ne": models.PaymentPaid}},
		bson.M{"$set": bson.M{
			"payment_status": models.PaymentPaid,
			"order_status":   models.OrderProcessing,
			"updated_at":     time.Now().UTC(),
		}},
		opts).Decode(&order)

	if errors.Is(err, mongo.ErrNoDocuments) {
		// Either the order does not exist or another caller already won.
		existing, ferr := r.FindByID(ctx, id)
		if ferr != nil {
			return nil, false, ferr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &order, true, nil
}

// MarkFailed records a failed payment attempt. Only a pending order can move
// to failed; a paid or already-failed order is left untouched.
func (r *OrderRepository) MarkFailed(ctx context.Context, id string) (*models.Order, bool, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	err := r.collection().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "payment_status": models.PaymentPending},
		bson.M{"$set": bson.M{
			"payment_status": models.PaymentFailed,
			"updated_at":     time.Now().UTC(),
		}},
		opts).Decode(&order)

	if errors.Is(err, mongo.ErrNoDocuments) {
		existing, ferr := r.FindByID(ctx, id)
		if ferr != nil {
			return nil, false, ferr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &order, true, nil
}

// UpdateStatus applies an administrative status change. Payment status may
// only move forward; once paid it is immutable.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, orderStatus models.OrderStatus, paymentStatus models.PaymentStatus) (*models.Order, error) {
	order, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := bson.M{"updated_at": time.Now().UTC()}
	if orderStatus != "" {
		if !orderStatus.Valid() {
			return nil, fmt.Errorf("invalid order status %q", orderStatus)
		}
		updates["order_status"] = orderStatus
	}
	if paymentStatus != "" {
		if !order.PaymentStatus.CanTransitionTo(paymentStatus) {
			return nil, fmt.Errorf("payment status cannot change from %q to %q", order.PaymentStatus, paymentStatus)
		}
		updates["payment_status"] = paymentStatus
	}

	// The filter pins the payment status read above so a concurrent
	// completion cannot be overwritten in between.
	res, err := r.collection().UpdateOne(ctx,
		bson.M{"_id": id, "payment_status": order.PaymentStatus},
		bson.M{"$set": updates})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("order %s changed concurrently, retry", id)
	}

	return r.FindByID(ctx, id)
}

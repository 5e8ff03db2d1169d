package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/example/comforty/pkg/checkout"
	"github.com/example/comforty/pkg/models"
)

// CartRepository keeps one JSON cart document per user in Redis. Carts are
// created lazily: reading a missing key yields an empty cart.
type CartRepository struct {
	redis *RedisRepository
}

func NewCartRepository(redis *RedisRepository) *CartRepository {
	return &CartRepository{redis: redis}
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

func (r *CartRepository) Get(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.redis.GetJSON(ctx, cartKey(userID), &cart)
	if errors.Is(err, redis.Nil) {
		return models.NewCart(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *CartRepository) save(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	return r.redis.SetJSON(ctx, cartKey(cart.UserID), cart, 0)
}

func (r *CartRepository) AddItem(ctx context.Context, userID, productID string, quantity int64) (*models.Cart, error) {
	cart, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Add(productID, quantity)
	if err := r.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *CartRepository) UpdateItem(ctx context.Context, userID, productID string, quantity int64) (*models.Cart, error) {
	cart, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !cart.SetQuantity(productID, quantity) {
		return nil, &checkout.NotFoundError{Entity: "cart item", ID: productID}
	}
	if err := r.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *CartRepository) RemoveItem(ctx context.Context, userID, productID string) (*models.Cart, error) {
	cart, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !cart.Remove(productID) {
		return nil, &checkout.NotFoundError{Entity: "cart item", ID: productID}
	}
	if err := r.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	return r.redis.Del(ctx, cartKey(userID))
}

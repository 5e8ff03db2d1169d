package models

import (
	"time"
)

// Product carries the catalog fields this backend reads plus the two
// inventory fields it owns: Stock and IsAvailable. Catalog CRUD lives in a
// separate service; availability is recomputed here on every stock change.
type Product struct {
	ID          string    `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Slug        string    `bson:"slug" json:"slug"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Category    string    `bson:"category" json:"category"`
	Price       float64   `bson:"price" json:"price"`
	Stock       int64     `bson:"stock" json:"stock"`
	IsAvailable bool      `bson:"is_available" json:"is_available"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

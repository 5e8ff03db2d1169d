package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/example/comforty/pkg/models"
)

const lowStockThreshold = 5

type TopProduct struct {
	ProductID    string `bson:"_id" json:"product_id"`
	Name         string `bson:"name" json:"name"`
	QuantitySold int64  `bson:"quantity_sold" json:"quantity_sold"`
}

type DashboardStats struct {
	TotalUsers       int64            `json:"total_users"`
	TotalOrders      int64            `json:"total_orders"`
	TotalSales       float64          `json:"total_sales"`
	TopProducts      []TopProduct     `json:"top_products"`
	LowStockProducts []models.Product `json:"low_stock_products"`
}

// StatsRepository aggregates order history for the admin dashboard.
type StatsRepository struct {
	mongo    *MongoRepository
	users    *UserRepository
	products *ProductRepository
}

func NewStatsRepository(mongo *MongoRepository, users *UserRepository, products *ProductRepository) *StatsRepository {
	return &StatsRepository{mongo: mongo, users: users, products: products}
}

func (r *StatsRepository) Dashboard(ctx context.Context) (*DashboardStats, error) {
	orders := r.mongo.Collection(CollectionOrders)

	totalUsers, err := r.users.Count(ctx)
	if err != nil {
		return nil, err
	}

	totalOrders, err := orders.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	totalSales, err := r.totalSales(ctx, orders)
	if err != nil {
		return nil, err
	}

	topProducts, err := r.topProducts(ctx, orders)
	if err != nil {
		return nil, err
	}

	lowStock, err := r.products.LowStock(ctx, lowStockThreshold)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalUsers:       totalUsers,
		TotalOrders:      totalOrders,
		TotalSales:       totalSales,
		TopProducts:      topProducts,
		LowStockProducts: lowStock,
	}, nil
}

func (r *StatsRepository) totalSales(ctx context.Context, orders *mongo.Collection) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":         nil,
			"total_sales": bson.M{"$sum": "$total_price"},
		}}},
	}

	cursor, err := orders.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		TotalSales float64 `bson:"total_sales"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].TotalSales, nil
}

func (r *StatsRepository) topProducts(ctx context.Context, orders *mongo.Collection) ([]TopProduct, error) {
	// Order items carry the product name captured at purchase time, so no
	// join back to the catalog is needed.
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.M{
			"_id":           "$items.product_id",
			"name":          bson.M{"$first": "$items.product_name"},
			"quantity_sold": bson.M{"$sum": "$items.quantity"},
		}}},
		{{Key: "$sort", Value: bson.M{"quantity_sold": -1}}},
		{{Key: "$limit", Value: 5}},
	}

	cursor, err := orders.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var top []TopProduct
	if err := cursor.All(ctx, &top); err != nil {
		return nil, err
	}
	return top, nil
}

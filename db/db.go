package db

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	CartsCollection        *mongo.Collection
	CartItemsCollection    *mongo.Collection
	OrdersCollection       *mongo.Collection
	OrderLinesCollection   *mongo.Collection
	ProductsCollection     *mongo.Collection
	CountersCollection     *mongo.Collection
	TransactionsCollection *mongo.Collection
	Client                 *mongo.Client
)

// Initialize MongoDB connection
func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGO_DB_NAME")
	if dbName == "" {
		dbName = "tourmartdb"
	}

	var err error
	Client, err = mongo.Connect(context.TODO(), options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	CartsCollection = Client.Database(dbName).Collection("carts")
	CartItemsCollection = Client.Database(dbName).Collection("cartitems")
	OrdersCollection = Client.Database(dbName).Collection("orders")
	OrderLinesCollection = Client.Database(dbName).Collection("orderlines")
	ProductsCollection = Client.Database(dbName).Collection("products")
	CountersCollection = Client.Database(dbName).Collection("counters")
	TransactionsCollection = Client.Database(dbName).Collection("transactions")
}

// EnsureIndexes creates the uniqueness constraints the stores rely on:
// one cart row per (buyer, product, option) and one order per order code.
func EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := CartItemsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "buyerid", Value: 1},
			{Key: "productid", Value: 1},
			{Key: "option", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("unique_buyer_product_option"),
	})
	if err != nil {
		return err
	}

	_, err = OrdersCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ordercode", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_ordercode"),
	})
	if err != nil {
		return err
	}

	_, err = CartsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "buyerid", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_cart_buyer"),
	})
	if err != nil {
		return err
	}

	_, err = OrderLinesCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "orderid", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = TransactionsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "idempotency_key", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetName("unique_idempotency_key").
			SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$gt": ""}}),
	})
	return err
}

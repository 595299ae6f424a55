package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the engine depends on. The unique
// (property_id, date) index on date_locks is load-bearing: reservation
// atomicity rests on concurrent inserts for the same night colliding here.
// Safe to call on every startup; index creation is idempotent.
func EnsureIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	locks := db.Collection("date_locks")
	_, err := locks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "property_id", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_property_date"),
	})
	if err != nil {
		return fmt.Errorf("failed to create date_locks unique index: %w", err)
	}
	_, err = locks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "token", Value: 1}},
		Options: options.Index().SetName("by_token"),
	})
	if err != nil {
		return fmt.Errorf("failed to create date_locks token index: %w", err)
	}

	bookings := db.Collection("bookings")
	_, err = bookings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "property_id", Value: 1}, {Key: "status", Value: 1}},
		Options: options.Index().SetName("by_property_status"),
	})
	if err != nil {
		return fmt.Errorf("failed to create bookings property/status index: %w", err)
	}
	_, err = bookings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "status", Value: 1}, {Key: "offer.expires_at", Value: 1}},
		Options: options.Index().SetName("by_status_offer_expiry"),
	})
	if err != nil {
		return fmt.Errorf("failed to create bookings offer expiry index: %w", err)
	}

	return nil
}

package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yasinarafat4/reluxrent-sub000/internal/db"
	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
	"github.com/yasinarafat4/reluxrent-sub000/internal/utils"
)

// IAvailabilityService guards the calendar. Reserve is the single
// serialization point of the whole system: a unique index on
// (property_id, date) in the date_locks collection makes two concurrent
// reservations of overlapping ranges collide at insert, so at most one wins.
type IAvailabilityService interface {
	// Reserve atomically holds every night in the range for a booking and
	// returns an opaque hold token. On conflict it rolls back any nights it
	// managed to insert and returns a ConflictError naming the taken dates.
	Reserve(ctx context.Context, propertyID, bookingID utils.SixID, r models.DateRange) (string, error)
	// Release frees all nights held under a token. Idempotent: releasing an
	// unknown or already-released token is a no-op.
	Release(ctx context.Context, token string) error
	// UnavailableDates returns the nights in the range already held by any
	// booking. Advisory only; the authoritative answer is Reserve itself.
	UnavailableDates(ctx context.Context, propertyID utils.SixID, r models.DateRange) ([]time.Time, error)
}

const dateLocksCollection = "date_locks"

// availabilityService implements IAvailabilityService.
type availabilityService struct {
	db *mongo.Database
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(database *mongo.Database) IAvailabilityService {
	return &availabilityService{db: database}
}

// Reserve inserts one date_locks document per night, all tagged with a fresh
// hold token. Ordered InsertMany stops at the first duplicate, so a losing
// attempt only ever has a prefix to roll back.
func (s *availabilityService) Reserve(ctx context.Context, propertyID, bookingID utils.SixID, r models.DateRange) (string, error) {
	dates := r.Dates()
	if len(dates) == 0 {
		return "", models.ErrInvalidRange
	}

	token := uuid.NewString()
	now := time.Now().UTC()
	docs := make([]interface{}, len(dates))
	for i, date := range dates {
		docs[i] = models.DateLock{
			PropertyID: propertyID,
			Date:       date,
			BookingID:  bookingID,
			Token:      token,
			CreatedAt:  now,
		}
	}

	collection := s.db.Collection(dateLocksCollection)
	_, err := collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err == nil {
		return token, nil
	}

	if !db.IsMongoDuplicateKeyError(err) {
		// Partial inserts from a non-duplicate failure must not linger.
		s.rollback(ctx, token)
		return "", fmt.Errorf("failed to reserve dates for booking %s: %w", bookingID.String(), err)
	}

	// Lost the race. Find out which nights are taken, then roll back our own.
	conflicting, lookupErr := s.UnavailableDates(ctx, propertyID, r)
	s.rollback(ctx, token)
	if lookupErr != nil {
		log.Printf("Warning: failed to look up conflicting dates for property %s: %v", propertyID.String(), lookupErr)
	}
	return "", &models.ConflictError{Dates: conflicting}
}

// rollback removes any lock documents inserted under a token. Used on the
// losing side of a reservation race and on non-duplicate insert failures.
func (s *availabilityService) rollback(ctx context.Context, token string) {
	collection := s.db.Collection(dateLocksCollection)
	if _, err := collection.DeleteMany(ctx, bson.M{"token": token}); err != nil {
		// The unique index keeps correctness either way; leftovers under a
		// dead token only block the dates until a manual sweep.
		log.Printf("ERROR: failed to roll back date locks for token %s: %v", token, err)
	}
}

// Release deletes all locks held under a token.
func (s *availabilityService) Release(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	collection := s.db.Collection(dateLocksCollection)
	result, err := collection.DeleteMany(ctx, bson.M{"token": token})
	if err != nil {
		return fmt.Errorf("failed to release date locks for token %s: %w", token, err)
	}
	if result.DeletedCount > 0 {
		log.Printf("Released %d date locks (token %s)", result.DeletedCount, token)
	}
	return nil
}

// UnavailableDates lists the held nights within a range, sorted ascending.
func (s *availabilityService) UnavailableDates(ctx context.Context, propertyID utils.SixID, r models.DateRange) ([]time.Time, error) {
	collection := s.db.Collection(dateLocksCollection)
	filter := bson.M{
		"property_id": propertyID,
		"date":        bson.M{"$gte": r.Start, "$lt": r.End},
	}
	opts := options.Find().SetSort(bson.M{"date": 1})
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying date locks for property %s: %w", propertyID.String(), err)
	}
	defer cursor.Close(ctx)

	var locks []models.DateLock
	if err := cursor.All(ctx, &locks); err != nil {
		return nil, fmt.Errorf("error decoding date locks: %w", err)
	}

	dates := make([]time.Time, 0, len(locks))
	for _, lock := range locks {
		dates = append(dates, models.Midnight(lock.Date))
	}
	return dates, nil
}

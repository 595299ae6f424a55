package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yasinarafat4/reluxrent-sub000/internal/config"
	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
	"github.com/yasinarafat4/reluxrent-sub000/internal/pricing"
)

// ICurrencyService defines the interface for currency reference data and
// rate snapshot composition. Rates are maintained by an external refresher
// writing into the currencies collection; this service only reads them.
type ICurrencyService interface {
	FindCurrencyByCode(ctx context.Context, code string) (*models.Currency, error)
	ListCurrencies(ctx context.Context) ([]models.Currency, error)
	UpsertCurrency(ctx context.Context, currency *models.Currency) error
	// SnapshotRates composes the rate pair a booking stores at confirmation:
	// paying currency vs settlement and property currency vs settlement.
	SnapshotRates(ctx context.Context, payingCode, propertyCode string) (*models.RateSnapshot, error)
}

const currenciesCollection = "currencies"

// currencyService implements ICurrencyService.
type currencyService struct {
	db  *mongo.Database
	cfg *config.Config
	rdb *redis.Client
}

// NewCurrencyService creates a new CurrencyService.
func NewCurrencyService(db *mongo.Database, cfg *config.Config, rdb *redis.Client) ICurrencyService {
	return &currencyService{db: db, cfg: cfg, rdb: rdb}
}

func currencyCacheKey(code string) string {
	return fmt.Sprintf("currency:%s", code)
}

// FindCurrencyByCode returns a currency by its code, checking the Redis cache
// first. Unknown or non-positive-rate currencies map to ErrUnknownCurrency.
func (s *currencyService) FindCurrencyByCode(ctx context.Context, code string) (*models.Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, models.ErrUnknownCurrency
	}

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, currencyCacheKey(code)).Result()
		if err == nil {
			var currency models.Currency
			if err := json.Unmarshal([]byte(cached), &currency); err == nil {
				return &currency, nil
			}
			// Corrupt cache entry; fall through to DB and let the re-set fix it.
		} else if err != redis.Nil {
			log.Printf("Warning: Redis error reading currency %s: %v", code, err)
		}
	}

	var currency models.Currency
	collection := s.db.Collection(currenciesCollection)
	err := collection.FindOne(ctx, bson.M{"_id": code}).Decode(&currency)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("currency %s: %w", code, models.ErrUnknownCurrency)
		}
		return nil, fmt.Errorf("error finding currency %s: %w", code, err)
	}
	if currency.Rate <= 0 {
		return nil, fmt.Errorf("currency %s has no positive rate: %w", code, models.ErrUnknownCurrency)
	}

	if s.rdb != nil {
		if data, err := json.Marshal(currency); err == nil {
			if err := s.rdb.Set(ctx, currencyCacheKey(code), data, s.cfg.GetCacheTTL).Err(); err != nil {
				log.Printf("Warning: Failed to cache currency %s in Redis: %v", code, err)
			}
		}
	}

	return &currency, nil
}

// ListCurrencies returns all currencies with a usable rate, sorted by code.
func (s *currencyService) ListCurrencies(ctx context.Context) ([]models.Currency, error) {
	collection := s.db.Collection(currenciesCollection)
	opts := options.Find().SetSort(bson.M{"_id": 1})
	cursor, err := collection.Find(ctx, bson.M{"rate": bson.M{"$gt": 0}}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing currencies: %w", err)
	}
	defer cursor.Close(ctx)

	var currencies []models.Currency
	if err := cursor.All(ctx, &currencies); err != nil {
		return nil, fmt.Errorf("error decoding currencies: %w", err)
	}
	return currencies, nil
}

// UpsertCurrency writes a rate entry and invalidates its cache. Used by the
// admin endpoint and by the external rate refresher.
func (s *currencyService) UpsertCurrency(ctx context.Context, currency *models.Currency) error {
	currency.Code = strings.ToUpper(strings.TrimSpace(currency.Code))
	if currency.Code == "" {
		return models.ErrUnknownCurrency
	}
	currency.UpdatedAt = time.Now().UTC()

	collection := s.db.Collection(currenciesCollection)
	filter := bson.M{"_id": currency.Code}
	update := bson.M{"$set": bson.M{
		"name":       currency.Name,
		"rate":       currency.Rate,
		"updated_at": currency.UpdatedAt,
	}}
	opts := options.Update().SetUpsert(true)
	if _, err := collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert currency %s: %w", currency.Code, err)
	}

	if s.rdb != nil {
		if err := s.rdb.Del(ctx, currencyCacheKey(currency.Code)).Err(); err != nil {
			log.Printf("Warning: Failed to invalidate currency cache for %s: %v", currency.Code, err)
		}
	}
	return nil
}

// SnapshotRates loads the paying, property and settlement currencies and
// composes the immutable rate pair stored on a booking.
func (s *currencyService) SnapshotRates(ctx context.Context, payingCode, propertyCode string) (*models.RateSnapshot, error) {
	paying, err := s.FindCurrencyByCode(ctx, payingCode)
	if err != nil {
		return nil, err
	}
	property, err := s.FindCurrencyByCode(ctx, propertyCode)
	if err != nil {
		return nil, err
	}
	settlement, err := s.FindCurrencyByCode(ctx, s.cfg.SettlementCurrency)
	if err != nil {
		return nil, fmt.Errorf("settlement currency %s unavailable: %w", s.cfg.SettlementCurrency, err)
	}

	return pricing.ComposeRates(*paying, *property, *settlement)
}

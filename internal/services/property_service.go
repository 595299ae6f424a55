package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yasinarafat4/reluxrent-sub000/internal/config"
	"github.com/yasinarafat4/reluxrent-sub000/internal/db"
	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
	"github.com/yasinarafat4/reluxrent-sub000/internal/pricing"
	"github.com/yasinarafat4/reluxrent-sub000/internal/utils"
)

// IPropertyService defines the interface for property pricing and calendar
// management. Listing content (media, descriptions, search) lives elsewhere;
// only the booking-relevant inputs are managed here.
type IPropertyService interface {
	CreateProperty(ctx context.Context, hostID utils.SixID, input *models.Property) (*models.Property, error)
	FindPropertyByID(ctx context.Context, propertyID utils.SixID) (*models.Property, error)
	UpdateProperty(ctx context.Context, propertyID, hostID utils.SixID, updates map[string]interface{}) (*models.Property, error)
	// SetDateOverrides replaces the per-date price/blocked overrides for the
	// given dates. Only the property's host may call it.
	SetDateOverrides(ctx context.Context, propertyID, hostID utils.SixID, overrides []models.DateOverride) error
	// GetCalendar resolves the nightly price series and blocked dates for a
	// range, without touching reservation state.
	GetCalendar(ctx context.Context, propertyID utils.SixID, r models.DateRange) ([]pricing.NightlyPrice, []time.Time, error)
}

const propertiesCollection = "properties"

// propertyService implements IPropertyService.
type propertyService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewPropertyService creates a new PropertyService.
func NewPropertyService(database *mongo.Database, cfg *config.Config) IPropertyService {
	return &propertyService{db: database, cfg: cfg}
}

// CreateProperty inserts a new property document.
func (s *propertyService) CreateProperty(ctx context.Context, hostID utils.SixID, input *models.Property) (*models.Property, error) {
	if input.BasePrice <= 0 {
		return nil, fmt.Errorf("base price must be positive, got %.2f", input.BasePrice)
	}
	if input.Accommodates <= 0 {
		return nil, fmt.Errorf("accommodates must be positive, got %d", input.Accommodates)
	}
	input.CurrencyCode = strings.ToUpper(strings.TrimSpace(input.CurrencyCode))
	if input.CurrencyCode == "" {
		return nil, models.ErrUnknownCurrency
	}
	if input.MinimumStayNights < 1 {
		input.MinimumStayNights = 1
	}

	collection := s.db.Collection(propertiesCollection)
	now := time.Now().UTC()

	var property *models.Property
	operation := func() error {
		property = &models.Property{
			ID:                 utils.NewSixID(),
			HostID:             hostID,
			Title:              input.Title,
			CurrencyCode:       input.CurrencyCode,
			BasePrice:          input.BasePrice,
			CleaningFee:        input.CleaningFee,
			ExtraGuestFee:      input.ExtraGuestFee,
			MinimumStayNights:  input.MinimumStayNights,
			Accommodates:       input.Accommodates,
			WeeklyDiscountPct:  input.WeeklyDiscountPct,
			MonthlyDiscountPct: input.MonthlyDiscountPct,
			Overrides:          []models.DateOverride{},
			CancellationPolicy: input.CancellationPolicy,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		_, insertErr := collection.InsertOne(ctx, property)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert new property for host %s after multiple retries: %w", hostID.String(), err)
	}
	return property, nil
}

// FindPropertyByID finds a non-deleted property by its ID.
func (s *propertyService) FindPropertyByID(ctx context.Context, propertyID utils.SixID) (*models.Property, error) {
	var property models.Property
	collection := s.db.Collection(propertiesCollection)
	filter := bson.M{"_id": propertyID, "deleted": bson.M{"$ne": true}}

	err := collection.FindOne(ctx, filter).Decode(&property)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding property by ID %s: %w", propertyID.String(), err)
	}
	return &property, nil
}

// allowed update fields for UpdateProperty
var allowedPropertyUpdateFields = map[string]bool{
	"title":                true,
	"base_price":           true,
	"cleaning_fee":         true,
	"extra_guest_fee":      true,
	"minimum_stay_nights":  true,
	"accommodates":         true,
	"weekly_discount_pct":  true,
	"monthly_discount_pct": true,
	"cancellation_policy":  true,
}

// UpdateProperty applies a whitelisted field update, conditional on ownership.
func (s *propertyService) UpdateProperty(ctx context.Context, propertyID, hostID utils.SixID, updates map[string]interface{}) (*models.Property, error) {
	setFields := bson.M{}
	for key, value := range updates {
		if !allowedPropertyUpdateFields[key] {
			return nil, fmt.Errorf("field '%s' cannot be updated", key)
		}
		setFields[key] = value
	}
	if len(setFields) == 0 {
		return nil, errors.New("no updatable fields provided")
	}
	setFields["updated_at"] = time.Now().UTC()

	collection := s.db.Collection(propertiesCollection)
	filter := bson.M{"_id": propertyID, "host_id": hostID, "deleted": bson.M{"$ne": true}}
	result, err := collection.UpdateOne(ctx, filter, bson.M{"$set": setFields})
	if err != nil {
		return nil, fmt.Errorf("error updating property %s: %w", propertyID.String(), err)
	}

	if result.MatchedCount == 0 {
		// Diagnose why the conditional update missed.
		var property models.Property
		errCheck := collection.FindOne(ctx, bson.M{"_id": propertyID}).Decode(&property)
		if errors.Is(errCheck, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("property %s not found", propertyID.String())
		}
		if property.HostID != hostID {
			return nil, fmt.Errorf("property %s does not belong to host %s", propertyID.String(), hostID.String())
		}
		if property.Deleted {
			return nil, fmt.Errorf("property %s is deleted", propertyID.String())
		}
		return nil, fmt.Errorf("property %s cannot be updated (condition not met)", propertyID.String())
	}

	return s.FindPropertyByID(ctx, propertyID)
}

// overrideUpdateAttempts bounds the re-read loop when concurrent edits keep
// bumping the property's updated_at between our read and our write.
const overrideUpdateAttempts = 5

// SetDateOverrides replaces overrides for the named dates, leaving other
// dates untouched. Dates are normalized to UTC midnight before matching so
// the calendar resolver finds them. The merged list is written conditionally
// on the updated_at read with the snapshot, so two hosts editing different
// dates at once cannot silently drop each other's overrides.
func (s *propertyService) SetDateOverrides(ctx context.Context, propertyID, hostID utils.SixID, overrides []models.DateOverride) error {
	if len(overrides) == 0 {
		return errors.New("no overrides provided")
	}

	collection := s.db.Collection(propertiesCollection)
	for attempt := 0; attempt < overrideUpdateAttempts; attempt++ {
		property, err := s.FindPropertyByID(ctx, propertyID)
		if err != nil {
			return err
		}
		if property.HostID != hostID {
			return fmt.Errorf("property %s does not belong to host %s", propertyID.String(), hostID.String())
		}

		// Merge: incoming dates replace any existing override for the same night.
		byDate := make(map[time.Time]models.DateOverride, len(property.Overrides)+len(overrides))
		for _, ov := range property.Overrides {
			byDate[models.Midnight(ov.Date)] = ov
		}
		for _, ov := range overrides {
			date := models.Midnight(ov.Date)
			byDate[date] = models.DateOverride{Date: date, Price: ov.Price, Bookable: ov.Bookable}
		}

		merged := make([]models.DateOverride, 0, len(byDate))
		for _, ov := range byDate {
			merged = append(merged, ov)
		}
		sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })

		filter := bson.M{
			"_id":        propertyID,
			"host_id":    hostID,
			"deleted":    bson.M{"$ne": true},
			"updated_at": property.UpdatedAt,
		}
		update := bson.M{"$set": bson.M{"overrides": merged, "updated_at": time.Now().UTC()}}
		result, err := collection.UpdateOne(ctx, filter, update)
		if err != nil {
			return fmt.Errorf("error setting overrides on property %s: %w", propertyID.String(), err)
		}
		if result.MatchedCount > 0 {
			return nil
		}
		// Someone else wrote between our read and our write; re-read and retry.
	}
	return fmt.Errorf("property %s kept changing while setting overrides, giving up after %d attempts", propertyID.String(), overrideUpdateAttempts)
}

// GetCalendar resolves the nightly price series for a range.
func (s *propertyService) GetCalendar(ctx context.Context, propertyID utils.SixID, r models.DateRange) ([]pricing.NightlyPrice, []time.Time, error) {
	property, err := s.FindPropertyByID(ctx, propertyID)
	if err != nil {
		return nil, nil, err
	}
	return pricing.ResolveCalendar(property, r)
}

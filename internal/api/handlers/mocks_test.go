package handlers_test

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/yasinarafat4/reluxrent-sub000/internal/api/middleware"
	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
	"github.com/yasinarafat4/reluxrent-sub000/internal/pricing"
	"github.com/yasinarafat4/reluxrent-sub000/internal/services"
	"github.com/yasinarafat4/reluxrent-sub000/internal/utils"
)

// fakeAuth injects a user ID the way AuthMiddleware would, so handler tests
// don't need real JWTs.
func fakeAuth(userID utils.SixID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID.String())
		c.Next()
	}
}

// MockBookingService implements services.IBookingService
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) PreviewQuote(ctx context.Context, propertyID utils.SixID, r models.DateRange, guests models.GuestCount, payingCurrency string) (*services.QuotePreview, error) {
	args := m.Called(ctx, propertyID, r, guests, payingCurrency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.QuotePreview), args.Error(1)
}

func (m *MockBookingService) CreateBooking(ctx context.Context, guestID utils.SixID, input *services.CreateBookingInput) (*models.Booking, error) {
	args := m.Called(ctx, guestID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) SubmitRequest(ctx context.Context, bookingID, guestID utils.SixID, r models.DateRange, guests models.GuestCount) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, guestID, r, guests)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) FindBookingByID(ctx context.Context, bookingID utils.SixID) (*models.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) FindBookingsByUser(ctx context.Context, userID utils.SixID, role string, limit int) ([]models.Booking, error) {
	args := m.Called(ctx, userID, role, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *MockBookingService) PreApprove(ctx context.Context, bookingID, hostID utils.SixID) error {
	args := m.Called(ctx, bookingID, hostID)
	return args.Error(0)
}

func (m *MockBookingService) Decline(ctx context.Context, bookingID, hostID utils.SixID) error {
	args := m.Called(ctx, bookingID, hostID)
	return args.Error(0)
}

func (m *MockBookingService) MakeSpecialOffer(ctx context.Context, bookingID, hostID utils.SixID, input *services.SpecialOfferInput) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, hostID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) WithdrawOffer(ctx context.Context, bookingID, hostID utils.SixID) error {
	args := m.Called(ctx, bookingID, hostID)
	return args.Error(0)
}

func (m *MockBookingService) Withdraw(ctx context.Context, bookingID, guestID utils.SixID) error {
	args := m.Called(ctx, bookingID, guestID)
	return args.Error(0)
}

func (m *MockBookingService) AcceptPreApproval(ctx context.Context, bookingID, guestID utils.SixID) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, guestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) AcceptOffer(ctx context.Context, bookingID, guestID utils.SixID) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, guestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) Cancel(ctx context.Context, bookingID, actorID utils.SixID) (float64, error) {
	args := m.Called(ctx, bookingID, actorID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockBookingService) ExpireOffer(ctx context.Context, bookingID utils.SixID) error {
	args := m.Called(ctx, bookingID)
	return args.Error(0)
}

func (m *MockBookingService) ExpireDueOffers(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

// MockAsynqClient implements handlers.IAsynqClient
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

// MockPropertyService implements services.IPropertyService
type MockPropertyService struct {
	mock.Mock
}

func (m *MockPropertyService) CreateProperty(ctx context.Context, hostID utils.SixID, input *models.Property) (*models.Property, error) {
	args := m.Called(ctx, hostID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) FindPropertyByID(ctx context.Context, propertyID utils.SixID) (*models.Property, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) UpdateProperty(ctx context.Context, propertyID, hostID utils.SixID, updates map[string]interface{}) (*models.Property, error) {
	args := m.Called(ctx, propertyID, hostID, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) SetDateOverrides(ctx context.Context, propertyID, hostID utils.SixID, overrides []models.DateOverride) error {
	args := m.Called(ctx, propertyID, hostID, overrides)
	return args.Error(0)
}

func (m *MockPropertyService) GetCalendar(ctx context.Context, propertyID utils.SixID, r models.DateRange) ([]pricing.NightlyPrice, []time.Time, error) {
	args := m.Called(ctx, propertyID, r)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]pricing.NightlyPrice), args.Get(1).([]time.Time), args.Error(2)
}

package tasks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/yasinarafat4/reluxrent-sub000/internal/config"
	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
	"github.com/yasinarafat4/reluxrent-sub000/internal/services"
	"github.com/yasinarafat4/reluxrent-sub000/internal/tasks"
	"github.com/yasinarafat4/reluxrent-sub000/internal/utils"
)

// --- Mocks ---

// MockBookingService
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

// MockAsynqClient
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

// --- Tests ---

func TestHandleOfferExpireTask_Success(t *testing.T) {
	mockBookings := new(MockBookingService)
	cfg := &config.Config{}
	p := tasks.NewTaskProcessor(cfg, mockBookings, nil)

	bookingID := utils.NewSixID()
	task, err := tasks.NewOfferExpireTask(bookingID)
	assert.NoError(t, err)

	mockBookings.On("ExpireOffer", mock.Anything, bookingID).Return(nil)

	err = p.HandleOfferExpireTask(context.Background(), task)

	assert.NoError(t, err)
	mockBookings.AssertExpectations(t)
}

func TestHandleOfferExpireTask_BadPayload(t *testing.T) {
	mockBookings := new(MockBookingService)
	cfg := &config.Config{}
	p := tasks.NewTaskProcessor(cfg, mockBookings, nil)

	task := asynq.NewTask(tasks.TypeOfferExpire, []byte("not-json"))

	err := p.HandleOfferExpireTask(context.Background(), task)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "Malformed payloads should not be retried")
	mockBookings.AssertNotCalled(t, "ExpireOffer", mock.Anything, mock.Anything)
}

func TestHandleOfferExpireTask_InvalidBookingID(t *testing.T) {
	mockBookings := new(MockBookingService)
	p := tasks.NewTaskProcessor(&config.Config{}, mockBookings, nil)

	task := asynq.NewTask(tasks.TypeOfferExpire, []byte(`{"booking_id":"!!!!"}`))

	err := p.HandleOfferExpireTask(context.Background(), task)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	mockBookings.AssertNotCalled(t, "ExpireOffer", mock.Anything, mock.Anything)
}

func TestHandleOfferSweepTask_ReEnqueues(t *testing.T) {
	mockBookings := new(MockBookingService)
	mockClient := new(MockAsynqClient)
	cfg := &config.Config{OfferSweepInterval: 10 * time.Minute}
	p := tasks.NewTaskProcessor(cfg, mockBookings, mockClient)

	mockBookings.On("ExpireDueOffers", mock.Anything, mock.AnythingOfType("time.Time")).Return(2, nil)
	mockClient.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		return task.Type() == tasks.TypeOfferSweep
	}), mock.Anything).Return(&asynq.TaskInfo{ID: "sweep-1"}, nil)

	err := p.HandleOfferSweepTask(context.Background(), tasks.NewOfferSweepTask())

	assert.NoError(t, err)
	mockBookings.AssertExpectations(t)
	mockClient.AssertExpectations(t)
}

func TestHandleOfferSweepTask_SweepError(t *testing.T) {
	mockBookings := new(MockBookingService)
	mockClient := new(MockAsynqClient)
	p := tasks.NewTaskProcessor(&config.Config{}, mockBookings, mockClient)

	mockBookings.On("ExpireDueOffers", mock.Anything, mock.AnythingOfType("time.Time")).Return(0, assert.AnError)

	err := p.HandleOfferSweepTask(context.Background(), tasks.NewOfferSweepTask())

	assert.Error(t, err)
	mockClient.AssertNotCalled(t, "EnqueueContext", mock.Anything, mock.Anything, mock.Anything)
}

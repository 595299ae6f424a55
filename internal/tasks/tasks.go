package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/yasinarafat4/reluxrent-sub000/internal/config"
	"github.com/yasinarafat4/reluxrent-sub000/internal/services"
	"github.com/yasinarafat4/reluxrent-sub000/internal/utils"
)

// TaskType defines the type of a background task.
const (
	TypeOfferExpire = "offer:expire"
	TypeOfferSweep  = "offer:sweep"
)

// IAsynqClient abstracts the asynq client for enqueuing, so handlers can
// re-enqueue themselves without a live Redis connection in tests.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr: rdb.Options().Addr,
	}
	return asynq.NewClient(clientOpt)
}

// OfferExpirePayload identifies the booking whose special offer should
// be expired.
type OfferExpirePayload struct {
	BookingID string `json:"booking_id"`
}

// NewOfferExpireTask builds a task that expires the pending special offer
// on the given booking. Callers schedule it with asynq.ProcessIn set to
// the offer TTL.
func NewOfferExpireTask(bookingID utils.SixID) (*asynq.Task, error) {
	payload, err := json.Marshal(OfferExpirePayload{BookingID: bookingID.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal offer expire payload: %w", err)
	}
	return asynq.NewTask(TypeOfferExpire, payload), nil
}

// NewOfferSweepTask builds the periodic sweep task that expires any
// overdue offers missed by their per-booking timers.
func NewOfferSweepTask() *asynq.Task {
	return asynq.NewTask(TypeOfferSweep, nil)
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg            *config.Config
	bookingService services.IBookingService
	taskClient     IAsynqClient
}

func NewTaskProcessor(
	cfg *config.Config,
	bookingService services.IBookingService,
	taskClient IAsynqClient,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:            cfg,
		bookingService: bookingService,
		taskClient:     taskClient,
	}
}

// SetupServer configures and returns an Asynq server instance.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isBgWorker bool) *asynq.Server {
	serverOpt := asynq.RedisClientOpt{
		Addr: rdb.Options().Addr,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				fmt.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v\n", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	if isBgWorker {
		mux.HandleFunc(TypeOfferExpire, processor.HandleOfferExpireTask)
		mux.HandleFunc(TypeOfferSweep, processor.HandleOfferSweepTask)
		fmt.Println("Registered background task handlers (offer expiry & sweep).")
	} else {
		// API mode doesn't run a task server, it only enqueues.
		fmt.Println("Running in API mode, no task server started.")
		return nil
	}

	if err := srv.Run(mux); err != nil {
		log.Fatalf("Could not run Asynq server: %v", err)
	}

	return srv
}

// --- Task Handlers ---

// HandleOfferExpireTask expires a single pending special offer. The
// service-side update is conditional on the offer still being pending and
// overdue, so a task firing after the guest accepted is a harmless no-op.
func (p *TaskProcessor) HandleOfferExpireTask(ctx context.Context, t *asynq.Task) error {
	var payload OfferExpirePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal offer expire payload: %v: %w", err, asynq.SkipRetry)
	}

	bookingID, err := utils.ParseSixID(payload.BookingID)
	if err != nil {
		log.Printf("Invalid BookingID in offer expire payload: %s", payload.BookingID)
		return fmt.Errorf("invalid booking ID in payload: %w", asynq.SkipRetry)
	}

	if err := p.bookingService.ExpireOffer(ctx, bookingID); err != nil {
		log.Printf("Error expiring offer on booking %s: %v", payload.BookingID, err)
		return err
	}
	return nil
}

// HandleOfferSweepTask expires all overdue offers and re-enqueues itself.
// It is the backstop for per-booking expiry timers lost to a Redis flush
// or a failed enqueue.
func (p *TaskProcessor) HandleOfferSweepTask(ctx context.Context, t *asynq.Task) error {
	expired, err := p.bookingService.ExpireDueOffers(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("Error sweeping overdue offers: %v", err)
		return err
	}
	if expired > 0 {
		log.Printf("Offer sweep expired %d overdue offers.", expired)
	}

	interval := p.cfg.OfferSweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	taskInfo, err := p.taskClient.EnqueueContext(ctx, NewOfferSweepTask(), asynq.ProcessIn(interval), asynq.Queue("low"))
	if err != nil {
		log.Printf("ERROR failed to re-enqueue offer sweep task: %v", err)
		return err
	}
	log.Printf("Offer sweep finished. Re-enqueued task %s to run in %v.", taskInfo.ID, interval)
	return nil
}

package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/cityflow/crm/internal/domain"
	"github.com/cityflow/crm/internal/events"
	"github.com/cityflow/crm/internal/observability"
	"github.com/cityflow/crm/internal/repository"
	"github.com/cityflow/crm/internal/sla"
)

const defaultSweepBatch = 500

// SLAStore is the slice of the ticket repository the sweeper needs.
type SLAStore interface {
	ListOpenWithDue(ctx context.Context, after *repository.SLACursor, limit int) ([]domain.Ticket, error)
	UpdateSLAStatus(ctx context.Context, id string, status domain.SLAStatus) error
}

// HistoryWriter records SLA transitions on the ticket audit trail.
type HistoryWriter interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Scanned  int
	Warning  int
	Breached int
	OnTrack  int
	Failed   int
}

// SLASweeper periodically re-evaluates the stored sla_status of open tickets so that list
// filters and reports agree with the live clock.
type SLASweeper struct {
	store      SLAStore
	history    HistoryWriter
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	batch      int
	now        func() time.Time

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
}

// SLASweeperConfig configures the sweeper.
type SLASweeperConfig struct {
	Store      SLAStore
	History    HistoryWriter
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Batch      int
	Now        func() time.Time
}

// NewSLASweeper builds a sweeper.
func NewSLASweeper(cfg SLASweeperConfig) *SLASweeper {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	batch := cfg.Batch
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &SLASweeper{
		store:      cfg.Store,
		history:    cfg.History,
		dispatcher: cfg.Dispatcher,
		metrics:    cfg.Metrics,
		logger:     logger,
		batch:      batch,
		now:        now,
	}
}

// Start schedules Sweep with a cron spec such as "@every 1m".
func (s *SLASweeper) Start(schedule string) error {
	c := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, s.tick); err != nil {
		return err
	}
	s.cron = c
	c.Start()
	s.logger.Info("sla sweeper started", zap.String("schedule", schedule))
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish or ctx to expire.
func (s *SLASweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("sla sweeper stop timed out")
	}
}

func (s *SLASweeper) tick() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Debug("sla sweep skipped, previous run still active")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("sla sweep failed", zap.Error(err))
		return
	}
	if res.Warning+res.Breached+res.OnTrack+res.Failed > 0 {
		s.logger.Info("sla sweep",
			zap.Int("scanned", res.Scanned),
			zap.Int("warning", res.Warning),
			zap.Int("breached", res.Breached),
			zap.Int("on_track", res.OnTrack),
			zap.Int("failed", res.Failed))
	}
}

// Sweep evaluates every open ticket with a due time and persists status changes. Tickets
// are read in pages of the configured batch size until the store runs dry. Moving into
// warning or breached publishes an event with the system actor.
func (s *SLASweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var (
		res    SweepResult
		errs   []error
		cursor *repository.SLACursor
	)
	now := s.now()
	for {
		tickets, err := s.store.ListOpenWithDue(ctx, cursor, s.batch)
		if err != nil {
			return res, err
		}
		for i := range tickets {
			if err := s.evaluate(ctx, &tickets[i], now, &res); err != nil {
				errs = append(errs, err)
			}
		}
		if len(tickets) < s.batch {
			break
		}
		last := tickets[len(tickets)-1]
		if last.SLADueAt == nil {
			break
		}
		cursor = &repository.SLACursor{DueAt: *last.SLADueAt, ID: last.ID}
	}
	if len(errs) == res.Scanned && len(errs) > 0 {
		return res, errors.Join(errs...)
	}
	return res, nil
}

func (s *SLASweeper) evaluate(ctx context.Context, t *domain.Ticket, now time.Time, res *SweepResult) error {
	res.Scanned++
	if t.SLADueAt == nil || t.Status.Completed() {
		return nil
	}
	next := sla.Evaluate(*t.SLADueAt, now)
	if next == t.SLAStatus {
		return nil
	}
	if err := s.store.UpdateSLAStatus(ctx, t.ID, next); err != nil {
		res.Failed++
		s.logger.Warn("update sla status", zap.String("ticket_id", t.ID), zap.Error(err))
		return err
	}
	s.metrics.SLATransition(string(next))
	s.recordHistory(ctx, t.ID, t.SLAStatus, next)

	var eventType events.EventType
	switch next {
	case domain.SLAStatusWarning:
		res.Warning++
		eventType = events.EventTicketSLAWarning
	case domain.SLAStatusBreached:
		res.Breached++
		eventType = events.EventTicketSLABreached
	default:
		res.OnTrack++
		return nil
	}
	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  t.ID,
		Actor:     events.SystemActor(),
		Timestamp: now.UTC(),
		Payload: events.TicketSLAPayload{
			TicketNumber: t.TicketNumber,
			OldStatus:    t.SLAStatus,
			NewStatus:    next,
			SLADueAt:     *t.SLADueAt,
			Tier2TeamID:  t.Tier2TeamID,
		},
	})
	return nil
}

func (s *SLASweeper) recordHistory(ctx context.Context, ticketID string, from, to domain.SLAStatus) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:   ticketID,
		ChangeType: domain.ChangeTypeSLA,
		OldValue:   map[string]any{"sla_status": string(from)},
		NewValue:   map[string]any{"sla_status": string(to)},
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("sla history write failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *SLASweeper) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("sla event handler failed", zap.String("ticket_id", event.TicketID), zap.Error(err))
	}
}

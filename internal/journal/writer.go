package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/arbfeed/internal/model"
)

// DB is the subset of *pgxpool.Pool the writer uses.
type DB interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Config holds journal writer configuration.
type Config struct {
	BatchSize     int           // Rows per insert batch
	FlushInterval time.Duration // Max time a row waits before flushing
	BufferSize    int           // Transitions buffered ahead of the writer
	WriteTimeout  time.Duration // Deadline for one batch insert
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: time.Second,
		BufferSize:    10000,
		WriteTimeout:  10 * time.Second,
	}
}

// Stats counts writer activity.
type Stats struct {
	Inserts   int64 `json:"inserts"`
	Conflicts int64 `json:"conflicts"`
	Flushes   int64 `json:"flushes"`
	Errors    int64 `json:"errors"`
	Dropped   int64 `json:"dropped"` // Buffer full
}

// eventRow is one opportunity_events row.
type eventRow struct {
	EventID       string
	Kind          string
	OpportunityID string
	Symbol        string
	BuyExchange   string
	SellExchange  string
	NetProfitPct  *float64
	IsActive      bool
	AppearedAt    *time.Time
	DisappearedAt *time.Time
	OccurredAt    time.Time
	Record        []byte
}

// Writer batches lifecycle transitions into PostgreSQL. It implements
// engine.TransitionObserver.
type Writer struct {
	cfg    Config
	db     DB
	logger *slog.Logger

	input chan model.Transition

	batch   []eventRow
	batchMu sync.Mutex
	stats   Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWriter creates a new Writer.
func NewWriter(cfg Config, db DB, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan model.Transition, cfg.BufferSize),
		batch:  make([]eventRow, 0, cfg.BatchSize),
	}
}

// EnsureSchema creates the journal table if it does not exist.
func (w *Writer) EnsureSchema(ctx context.Context) error {
	if _, err := w.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

// Start begins consuming transitions and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.run()

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains buffered transitions, flushes them, and shuts the writer down.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal writer")

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
		return ctx.Err()
	}

	// Final drain and flush
	for {
		select {
		case tr := <-w.input:
			w.add(tr)
			continue
		default:
		}
		break
	}
	err := w.flush(ctx)

	w.logger.Info("journal writer stopped", "stats", w.Stats())
	return err
}

// OnTransitions queues transitions without blocking. When the buffer is full
// the transition is dropped and counted.
func (w *Writer) OnTransitions(transitions []model.Transition) {
	for _, tr := range transitions {
		select {
		case w.input <- tr:
		default:
			w.batchMu.Lock()
			w.stats.Dropped++
			w.batchMu.Unlock()
		}
	}
}

// Stats returns current counters.
func (w *Writer) Stats() Stats {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.stats
}

func (w *Writer) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case tr := <-w.input:
			if w.add(tr) {
				w.flush(w.ctx)
			}
		case <-ticker.C:
			w.flush(w.ctx)
		}
	}
}

// add appends a transition to the batch and reports whether it is full.
func (w *Writer) add(tr model.Transition) bool {
	row, err := transform(tr)
	if err != nil {
		w.logger.Warn("skipping unencodable transition", "id", tr.Record.ID, "error", err)
		return false
	}

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, row)
	return len(w.batch) >= w.cfg.BatchSize
}

// flush writes the current batch to the database under one batch id.
func (w *Writer) flush(ctx context.Context) error {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return nil
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]eventRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	if ctx.Err() != nil {
		// Shutting down: the caller's deadline governs the final flush.
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, w.cfg.WriteTimeout)
	defer cancel()

	start := time.Now()
	batchID := uuid.NewString()

	conflicts, err := w.batchInsert(ctx, batchID, batch)
	if err != nil {
		w.logger.Error("journal batch insert failed", "error", err, "count", len(batch), "batch_id", batchID)
		w.batchMu.Lock()
		w.stats.Errors++
		w.batchMu.Unlock()
		return err
	}

	w.batchMu.Lock()
	w.stats.Inserts += int64(len(batch) - conflicts)
	w.stats.Conflicts += int64(conflicts)
	w.stats.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed journal events",
		"batch_id", batchID,
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
	return nil
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, batchID string, rows []eventRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertEvent,
			r.EventID, batchID, r.Kind, r.OpportunityID, r.Symbol, r.BuyExchange, r.SellExchange,
			r.NetProfitPct, r.IsActive, r.AppearedAt, r.DisappearedAt, r.OccurredAt, r.Record,
		)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}

// eventNamespace scopes the name-based event ids.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("arbfeed/opportunity_events"))

// eventID derives a stable id for one transition, so a replayed transition
// hits ON CONFLICT instead of inserting twice.
func eventID(tr model.Transition) string {
	var ts int64
	if tr.Record.Timestamp != nil {
		ts = *tr.Record.Timestamp
	}
	name := fmt.Sprintf("%s|%s|%d|%d", tr.Record.ID, tr.Kind, tr.At, ts)
	return uuid.NewSHA1(eventNamespace, []byte(name)).String()
}

// transform converts a Transition to an eventRow.
func transform(tr model.Transition) (eventRow, error) {
	record, err := json.Marshal(tr.Record)
	if err != nil {
		return eventRow{}, err
	}

	r := tr.Record
	return eventRow{
		EventID:       eventID(tr),
		Kind:          string(tr.Kind),
		OpportunityID: r.ID,
		Symbol:        r.Symbol,
		BuyExchange:   r.BuyExchange,
		SellExchange:  r.SellExchange,
		NetProfitPct:  r.NetProfitPct,
		IsActive:      r.IsActive,
		AppearedAt:    msTime(r.AppearedAt),
		DisappearedAt: msTime(r.DisappearedAt),
		OccurredAt:    time.UnixMilli(tr.At).UTC(),
		Record:        record,
	}, nil
}

// msTime converts epoch milliseconds to a time, with 0 as NULL.
func msTime(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

package reconcile

import (
	"log/slog"
	"time"

	"github.com/rickgao/arbfeed/internal/model"
)

// Config holds Reconciler configuration.
type Config struct {
	StickyDuration time.Duration // How long vanished records stay queryable
	Precision      int32         // Decimal places for numeric comparison
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		StickyDuration: 5 * time.Minute,
		Precision:      DefaultPrecision,
	}
}

// Diff classifies the ids touched by one reconcile step.
type Diff struct {
	Added      []string // Not tracked before
	Updated    []string // Payload changed
	Reappeared []string // Inactive before, payload unchanged
	Vanished   []string // Active before, absent from the snapshot
}

// Empty reports whether the step changed nothing.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Reappeared) == 0 && len(d.Vanished) == 0
}

// UpdatedCount counts payload changes and reappearances together.
func (d Diff) UpdatedCount() int {
	return len(d.Updated) + len(d.Reappeared)
}

// Reconciler merges inbound snapshots into the authoritative map. It holds
// no state of its own: callers own the current *State and must serialize
// Reconcile and Sweep calls against it.
type Reconciler struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a new Reconciler.
func New(cfg Config, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Precision <= 0 {
		cfg.Precision = DefaultPrecision
	}
	return &Reconciler{cfg: cfg, logger: logger}
}

// Config returns the reconciler configuration.
func (r *Reconciler) Config() Config {
	return r.cfg
}

// Reconcile merges incoming (one full snapshot) into prev at time now (ms).
// The returned State is prev itself when nothing changed.
func (r *Reconciler) Reconcile(prev *State, incoming []model.Opportunity, now int64) (*State, Diff) {
	next := prev.clone(now)
	var diff Diff

	present := make(map[string]struct{}, len(incoming))

	for _, opp := range incoming {
		present[opp.ID] = struct{}{}

		existing, ok := next.records[opp.ID]
		switch {
		case !ok:
			next.records[opp.ID] = model.Record{
				Opportunity: opp,
				IsActive:    true,
				AppearedAt:  now,
			}
			diff.Added = append(diff.Added, opp.ID)

		case !Equal(existing.Opportunity, opp, r.cfg.Precision):
			next.records[opp.ID] = model.Record{
				Opportunity: opp,
				IsActive:    true,
				AppearedAt:  existing.AppearedAt,
			}
			diff.Updated = append(diff.Updated, opp.ID)

		case !existing.IsActive:
			existing.IsActive = true
			existing.DisappearedAt = 0
			next.records[opp.ID] = existing
			diff.Reappeared = append(diff.Reappeared, opp.ID)
		}
	}

	for id, rec := range next.records {
		if _, ok := present[id]; ok || !rec.IsActive {
			continue
		}
		rec.IsActive = false
		rec.DisappearedAt = now
		next.records[id] = rec
		diff.Vanished = append(diff.Vanished, id)
	}

	if diff.Empty() {
		return prev, diff
	}

	r.logger.Debug("snapshot reconciled",
		"incoming", len(incoming),
		"tracked", next.Len(),
		"added", len(diff.Added),
		"updated", len(diff.Updated),
		"reappeared", len(diff.Reappeared),
		"vanished", len(diff.Vanished),
		"generation", next.generation,
	)

	return next, diff
}

// Sweep evicts inactive records whose sticky period has elapsed at now (ms).
// Active records are never touched. The returned State is prev itself when
// nothing was evicted.
func (r *Reconciler) Sweep(prev *State, now int64) (*State, []string) {
	sticky := r.cfg.StickyDuration.Milliseconds()

	var evicted []string
	for id, rec := range prev.recordsOrNil() {
		if rec.IsActive {
			continue
		}
		at, ok := rec.Disappeared()
		if !ok || now-at > sticky {
			evicted = append(evicted, id)
		}
	}

	if len(evicted) == 0 {
		return prev, nil
	}

	next := prev.clone(now)
	for _, id := range evicted {
		delete(next.records, id)
	}

	r.logger.Debug("sticky records evicted",
		"evicted", len(evicted),
		"tracked", next.Len(),
		"generation", next.generation,
	)

	return next, evicted
}

func (s *State) recordsOrNil() map[string]model.Record {
	if s == nil {
		return nil
	}
	return s.records
}

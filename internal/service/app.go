// Package service wires the engine together: it owns the in-memory state and
// runs every user action through the same mutate -> audit -> normalize ->
// reconcile -> persist pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/pantrybook/pantrybook/internal/audit"
	"github.com/pantrybook/pantrybook/internal/ids"
	"github.com/pantrybook/pantrybook/internal/metrics"
	"github.com/pantrybook/pantrybook/internal/models"
	"github.com/pantrybook/pantrybook/internal/pantry"
	"github.com/pantrybook/pantrybook/internal/plan"
	"github.com/pantrybook/pantrybook/internal/state"
	"github.com/pantrybook/pantrybook/internal/storage"
)

// LoadStatus describes how the last load went.
type LoadStatus string

const (
	StatusOK        LoadStatus = "ok"
	StatusEmpty     LoadStatus = "empty"
	StatusRecovered LoadStatus = "recovered"
	StatusReset     LoadStatus = "reset"
	StatusWarning   LoadStatus = "warning"
)

// UndoWindow is how long an undo snapshot stays valid. Expiry is checked
// lazily against the clock on the undo attempt; no timer runs.
const UndoWindow = 10 * time.Second

// ErrNotFound is returned when an operation names a missing ingredient,
// recipe or lot.
var ErrNotFound = errors.New("service: not found")

// ErrInvalid is returned for inputs rejected at the edit boundary.
var ErrInvalid = errors.New("service: invalid input")

type undoSnapshot struct {
	state     *models.State
	message   string
	expiresAt time.Time
}

// App is the application controller. It holds the single process-wide state
// and all injected dependencies, so tests can run with a fixed clock and id
// sequence.
type App struct {
	store storage.Store
	ids   ids.Generator
	now   func() time.Time

	state     *models.State
	status    LoadStatus
	lastAudit audit.Report
	undo      *undoSnapshot

	// onCommit is invoked after every committed mutation, for the view layer
	// to re-render. May be nil.
	onCommit func()
}

// New creates an App with explicit dependencies.
func New(store storage.Store, gen ids.Generator, clock func() time.Time) *App {
	return &App{
		store: store,
		ids:   gen,
		now:   clock,
		state: models.NewState(),
	}
}

// NewDefault creates an App with UUID ids and the wall clock.
func NewDefault(store storage.Store) *App {
	return New(store, ids.UUID{}, time.Now)
}

// SetOnCommit registers the render callback invoked after each committed
// mutation.
func (a *App) SetOnCommit(fn func()) {
	a.onCommit = fn
}

// State exposes the live state for the view layer. Treat as read-only;
// mutations go through App operations.
func (a *App) State() *models.State {
	return a.state
}

// Load reads the persisted state and runs the repair pipeline over it.
//
// A missing main document yields a fresh default state (StatusEmpty). An
// unparsable one is quarantined and the recovery mirror is tried
// (StatusRecovered); if that fails too, the state resets to defaults
// (StatusReset). Any repair, stale re-pricing or reconciliation detected on
// load is persisted right away.
func (a *App) Load(ctx context.Context) (LoadStatus, error) {
	status := StatusOK

	raw, err := a.store.Read(ctx, storage.KeyMain)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		a.state = models.NewState()
		status = StatusEmpty
	case err != nil:
		a.status = StatusWarning
		return StatusWarning, fmt.Errorf("load state: %w", err)
	default:
		s, derr := state.Decode(raw)
		if derr == nil {
			a.state = s
			break
		}
		slog.Warn("Main state unparsable, trying recovery mirror", "error", derr)
		metrics.QuarantinesTotal.Inc()
		if qerr := a.store.Quarantine(ctx, raw); qerr != nil {
			slog.Error("Failed to quarantine corrupt payload", "error", qerr)
		}
		s, status = a.loadRecovery(ctx)
		a.state = s
	}

	changed := a.refresh()
	a.status = status
	metrics.LoadsTotal.WithLabelValues(string(status)).Inc()

	if status != StatusOK || changed {
		if err := a.persist(ctx); err != nil {
			slog.Warn("Persist after load failed", "error", err)
			return a.status, nil
		}
	}
	slog.Info("State loaded",
		"status", status,
		"ingredients", len(a.state.Ingredients),
		"lots", len(a.state.Pantry),
		"recipes", len(a.state.Recipes),
	)
	return a.status, nil
}

func (a *App) loadRecovery(ctx context.Context) (*models.State, LoadStatus) {
	raw, err := a.store.Read(ctx, storage.KeyRecovery)
	if err == nil {
		if s, derr := state.Decode(raw); derr == nil {
			return s, StatusRecovered
		} else {
			slog.Error("Recovery mirror unparsable as well", "error", derr)
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		slog.Error("Failed to read recovery mirror", "error", err)
	}
	return models.NewState(), StatusReset
}

// refresh runs the non-persisting part of the pipeline: repair references,
// normalize and re-price the pantry, raise the shopping list to the plan.
// Reports whether anything changed.
func (a *App) refresh() bool {
	rep := audit.Repair(a.state, audit.Options{})
	a.lastAudit = rep
	recordAudit(rep)

	catalog := models.IngredientIndex(a.state.Ingredients)

	before := a.state.Pantry
	normalized := pantry.Normalize(a.state.Pantry, catalog)
	pantryChanged := !reflect.DeepEqual(before, normalized)
	a.state.Pantry = normalized

	repriced := pantry.RepriceAll(a.state.Pantry, catalog)

	reqs := plan.Summary(a.state, nil, a.now())
	shopping, reconciled := plan.Reconcile(a.state.Shopping, reqs, plan.ModeRaise, a.ids.New)
	a.state.Shopping = shopping

	return !rep.Clean() || pantryChanged || repriced || reconciled
}

// persist writes the state through to the main key and the recovery mirror.
// On failure the in-memory state is kept and the status degrades to warning.
func (a *App) persist(ctx context.Context) error {
	state.EnsureShape(a.state)
	raw, err := state.Export(a.state, a.now())
	if err != nil {
		a.status = StatusWarning
		metrics.SavesTotal.WithLabelValues("failed").Inc()
		return err
	}

	if err := a.store.Write(ctx, storage.KeyMain, raw); err != nil {
		a.status = StatusWarning
		metrics.SavesTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("write main state: %w", err)
	}
	result := "ok"
	if err := a.store.Write(ctx, storage.KeyRecovery, raw); err != nil {
		// Main write succeeded; a stale mirror degrades the status but the
		// save itself stands.
		a.status = StatusWarning
		result = "degraded"
		slog.Warn("Failed to write recovery mirror", "error", err)
	}

	meta, err := storage.LoadMeta(ctx, a.store)
	if err == nil {
		meta.Schema = state.CurrentSchema
		meta.LastSavedAt = a.now()
		if err := storage.SaveMeta(ctx, a.store, meta); err != nil {
			slog.Warn("Failed to update meta record", "error", err)
		}
	}

	metrics.SavesTotal.WithLabelValues(result).Inc()
	return nil
}

// commit runs the full pipeline after a mutation and persists the result.
func (a *App) commit(ctx context.Context) error {
	a.refresh()
	if err := a.persist(ctx); err != nil {
		slog.Error("Save failed, keeping in-memory state", "error", err)
		return err
	}
	if a.onCommit != nil {
		a.onCommit()
	}
	return nil
}

func recordAudit(rep audit.Report) {
	record := func(collection string, n int) {
		if n > 0 {
			metrics.AuditRemovalsTotal.WithLabelValues(collection).Add(float64(n))
		}
	}
	record("shopping", rep.ShoppingRemoved)
	record("pantry", rep.LotsRemoved)
	record("recipe_items", rep.RecipeItemsRemoved)
	record("planned_recipes", rep.PlannedRemoved)
	record("session_keys", rep.SessionKeysRemoved)
}

// snapshotUndo captures the current state for a destructive operation. The
// snapshot replaces any previous one.
func (a *App) snapshotUndo(message string) {
	a.undo = &undoSnapshot{
		state:     a.state.Clone(),
		message:   message,
		expiresAt: a.now().Add(UndoWindow),
	}
}

// UndoAvailable returns the pending undo message, ok=false when the window
// has expired or nothing is pending.
func (a *App) UndoAvailable() (string, bool) {
	if a.undo == nil || a.now().After(a.undo.expiresAt) {
		return "", false
	}
	return a.undo.message, true
}

// Undo restores the snapshot taken before the last destructive operation.
// Returns false when the window has expired; that is a no-op, not an error.
func (a *App) Undo(ctx context.Context) (bool, error) {
	if a.undo == nil {
		return false, nil
	}
	if a.now().After(a.undo.expiresAt) {
		a.undo = nil
		return false, nil
	}
	a.state = a.undo.state
	a.undo = nil
	slog.Info("Undo applied")
	return true, a.commit(ctx)
}

// DismissUndo drops the pending snapshot.
func (a *App) DismissUndo() {
	a.undo = nil
}

// Diagnostics is the read-only report for the diagnostics panel.
type Diagnostics struct {
	LoadStatus  LoadStatus   `json:"loadStatus"`
	LastAudit   audit.Report `json:"lastAudit"`
	LastSavedAt time.Time    `json:"lastSavedAt,omitzero"`
	Quarantined int          `json:"quarantined"`
}

// Diagnostics returns the last load status, the last audit report and
// storage metadata.
func (a *App) Diagnostics(ctx context.Context) Diagnostics {
	d := Diagnostics{LoadStatus: a.status, LastAudit: a.lastAudit}
	if meta, err := storage.LoadMeta(ctx, a.store); err == nil {
		d.LastSavedAt = meta.LastSavedAt
	}
	if entries, err := a.store.Quarantined(ctx); err == nil {
		d.Quarantined = len(entries)
	}
	return d
}

// PantryOverview returns the grouped per-ingredient pantry summary.
func (a *App) PantryOverview() []pantry.Grouped {
	return pantry.Group(a.state.Pantry, models.IngredientIndex(a.state.Ingredients), a.now())
}

// PlanSummary computes requirements for the active plan, or for an override
// list when previewing plan changes.
func (a *App) PlanSummary(planned []models.PlannedRecipe) []plan.Requirement {
	return plan.Summary(a.state, planned, a.now())
}

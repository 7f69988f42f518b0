package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pantrybook/pantrybook/internal/state"
	"github.com/pantrybook/pantrybook/internal/storage"
)

// Export serializes the current state into the download envelope.
func (a *App) Export(ctx context.Context) ([]byte, error) {
	return state.Export(a.state, a.now())
}

// Import replaces the state with an exported envelope or a bare state
// document. A restore point of the current state is written first, so a bad
// import can be rolled back manually.
func (a *App) Import(ctx context.Context, raw []byte) error {
	imported, err := state.Import(raw)
	if err != nil {
		return fmt.Errorf("import rejected: %w", err)
	}

	if err := a.writeRestorePoint(ctx); err != nil {
		return err
	}

	a.state = imported
	a.undo = nil
	slog.Info("State imported",
		"ingredients", len(imported.Ingredients),
		"recipes", len(imported.Recipes),
	)
	return a.commit(ctx)
}

// RestoreFromRestorePoint rolls the state back to the last restore point.
func (a *App) RestoreFromRestorePoint(ctx context.Context) error {
	raw, err := a.store.Read(ctx, storage.KeyRestorePoint)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: no restore point", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read restore point: %w", err)
	}
	restored, err := state.Decode(raw)
	if err != nil {
		return fmt.Errorf("restore point unparsable: %w", err)
	}

	a.state = restored
	a.undo = nil
	slog.Info("State restored from restore point")
	return a.commit(ctx)
}

// writeRestorePoint snapshots the current state under the restore-point key.
// Distinct from the recovery mirror, which tracks every save.
func (a *App) writeRestorePoint(ctx context.Context) error {
	raw, err := state.Export(a.state, a.now())
	if err != nil {
		return fmt.Errorf("snapshot state: %w", err)
	}
	if err := a.store.Write(ctx, storage.KeyRestorePoint, raw); err != nil {
		return fmt.Errorf("write restore point: %w", err)
	}
	meta, err := storage.LoadMeta(ctx, a.store)
	if err == nil {
		meta.RestorePointAt = a.now()
		if err := storage.SaveMeta(ctx, a.store, meta); err != nil {
			slog.Warn("Failed to update meta record", "error", err)
		}
	}
	return nil
}

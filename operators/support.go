package operators

import (
	"context"
	"log/slog"

	"github.com/poiesic/dataforge/core"
	"github.com/poiesic/dataforge/operator"
	"github.com/poiesic/dataforge/storage"
)

// base carries what every operator shares.
type base struct {
	name   string
	desc   operator.Description
	logger *slog.Logger
}

func newBase(name string, logger *slog.Logger) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{
		name:   name,
		desc:   descriptions[name],
		logger: logger.With("component", "operator", "operator", name),
	}
}

// Desc implements operator.Operator.
func (b base) Desc(lang string) string {
	return b.desc.For(lang)
}

// load reads the current stage and checks its columns before any work.
func (b base) load(ctx context.Context, s storage.Storage, required, forbidden []string) (*core.Table, error) {
	table, err := s.Read(ctx)
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		// row-oriented formats drop the columns of an empty stage
		for _, c := range required {
			if table.HasColumn(c) {
				continue
			}
			if err := table.SetColumn(c, nil); err != nil {
				return nil, err
			}
		}
	}
	if err := core.ValidateColumns(table, required, forbidden); err != nil {
		return nil, err
	}
	return table, nil
}

// save writes the result to the next stage.
func (b base) save(ctx context.Context, s storage.Storage, table *core.Table, before int) error {
	path, err := s.Write(ctx, table)
	if err != nil {
		return err
	}
	b.logger.Info("stage written", "path", path, "rows_in", before, "rows_out", table.Len())
	return nil
}

// rowFailed logs a problem confined to one row.
func (b base) rowFailed(index int, err error) {
	b.logger.Warn("row skipped", "error", &operator.PerRowError{Index: index, Err: err})
}

// optional returns name in a one-element slice, or nil when it is empty.
func optional(name string) []string {
	if name == "" {
		return nil
	}
	return []string{name}
}

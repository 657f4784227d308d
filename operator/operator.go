package operator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/dataforge/serving"
	"github.com/poiesic/dataforge/storage"
)

// Operator is a single configurable pipeline stage.
type Operator interface {
	// CheckConfig reports every missing or conflicting setting at once.
	CheckConfig() error

	// Run reads the table at the storage's current stage and writes its
	// result to the next stage. It returns the columns it produced, if any.
	Run(ctx context.Context, s storage.Storage) ([]string, error)

	// Desc describes the operator in the language named by lang ("zh" or
	// "en"). Other tags get a generic description.
	Desc(lang string) string
}

// Description holds an operator's documentation in several languages.
type Description struct {
	ZH      string
	EN      string
	Generic string
}

// For returns the description for lang, falling back to Generic and then EN.
func (d Description) For(lang string) string {
	switch lang {
	case "zh":
		if d.ZH != "" {
			return d.ZH
		}
	case "en":
		if d.EN != "" {
			return d.EN
		}
	}
	if d.Generic != "" {
		return d.Generic
	}
	return d.EN
}

// Deps are the shared resources handed to factories.
type Deps struct {
	Serving serving.Serving
	Logger  *slog.Logger
}

// LoggerFor returns a component logger for the named operator.
func (d Deps) LoggerFor(name string) *slog.Logger {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", "operator", "operator", name)
}

// RequireServing returns the serving client. Without one the error matches
// both ErrServingRequired and ErrConfig.
func (d Deps) RequireServing(name string) (serving.Serving, error) {
	if d.Serving == nil {
		return nil, fmt.Errorf("%w: %w", ErrServingRequired, &ConfigError{Operator: name, Missing: []string{"serving"}})
	}
	return d.Serving, nil
}

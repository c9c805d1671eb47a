package extensions

import (
	"log/slog"
	"time"

	celldag "github.com/celldag/celldag-go"
)

// Logging logs graph operations through slog.
type Logging struct {
	celldag.BaseExtension
	logger *slog.Logger
}

// NewLogging creates a logging extension writing to the given handler.
func NewLogging(handler slog.Handler) *Logging {
	return &Logging{
		BaseExtension: celldag.NewBaseExtension("logging"),
		logger:        slog.New(handler),
	}
}

func (e *Logging) Wrap(next func() (any, error), op *celldag.Operation) (any, error) {
	start := time.Now()
	result, err := next()
	duration := time.Since(start)

	if err != nil {
		e.logger.Error("operation failed",
			"op", string(op.Kind),
			"cell", op.Cell,
			"duration", duration,
			"error", err,
		)
		return result, err
	}

	e.logger.Debug("operation completed",
		"op", string(op.Kind),
		"cell", op.Cell,
		"duration", duration,
	)
	return result, nil
}

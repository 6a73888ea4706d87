package logging

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Every entry carries a run_id so overlapping
// scheduler output from successive runs can be told apart.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("run_id", uuid.NewString())), nil
}

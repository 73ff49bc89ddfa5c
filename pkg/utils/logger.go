package utils

import (
	"fmt"

	"go.uber.org/zap"
)

// NewSugaredLogger creates a named sugared logger writing to stderr. If verbose
// is true it is a development logger at debug level, otherwise a production
// JSON logger at info level. stdout is left to command output.
func NewSugaredLogger(verbose bool, name string) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if name != "" {
		l = l.Named(name)
	}
	return l.Sugar(), nil
}

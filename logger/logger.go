package logger

import (
	"log"

	"go.uber.org/zap"
)

// New builds the process-wide zap logger. mode "release" selects the
// JSON production encoder; anything else gets the console development
// encoder.
func New(mode string) *zap.Logger {
	var l *zap.Logger
	var err error
	if mode == "release" || mode == "production" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return l
}

// Package logging centralizes zap logger construction so every component
// is handed the same structured *zap.SugaredLogger.
package logging

import "go.uber.org/zap"

// New builds a SugaredLogger. dev selects a human-readable console
// development encoder (matching --dev in the CLI); otherwise a JSON
// production encoder is used.
func New(dev bool) (*zap.SugaredLogger, error) {
	var logger *zap.Logger
	var err error
	if dev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

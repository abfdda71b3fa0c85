// Package logx builds the process logger.
package logx

import (
	"strings"

	"go.uber.org/zap"
)

// New returns a JSON production logger for APP_ENV=production|prod and a
// human-readable development logger otherwise.
func New(env string) (*zap.Logger, error) {
	switch strings.ToLower(env) {
	case "production", "prod":
		return zap.NewProduction()
	default:
		return zap.NewDevelopment()
	}
}

// README: Structured logger construction.
package infra

import "go.uber.org/zap"

// NewLogger builds the process-wide zap logger. Development mode gives
// console output for local runs; anything else uses production JSON.
func NewLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

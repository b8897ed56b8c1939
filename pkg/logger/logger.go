package logger

import (
	"os"

	"go.uber.org/zap"
)

// New builds the process-wide zap logger. Development mode (human-readable
// console output) is selected via APP_ENV=development.
func New() *zap.Logger {
	var l *zap.Logger
	var err error

	if os.Getenv("APP_ENV") == "development" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return l
}

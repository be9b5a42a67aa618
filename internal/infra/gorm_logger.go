package infra

import (
	"time"

	"esca/queue-gateway/internal/config"

	log "github.com/sirupsen/logrus"
	gormLogger "gorm.io/gorm/logger"
)

// newGormLogger routes gorm's query log through the application logger. SQL
// is only echoed outside production.
func newGormLogger(appEnv config.AppEnv, logger *log.Logger) gormLogger.Interface {
	level := gormLogger.Warn
	if appEnv == config.LocalEnv || appEnv == config.DevelopEnv {
		level = gormLogger.Info
	}

	return gormLogger.New(
		logger,
		gormLogger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

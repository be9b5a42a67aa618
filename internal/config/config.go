package config

import (
	"time"

	"github.com/sirupsen/logrus"
)

type AppEnv string

const (
	ProductionEnv AppEnv = "production"
	StageEnv      AppEnv = "stage"
	DevelopEnv    AppEnv = "develop"
	LocalEnv      AppEnv = "local"
	TestEnv       AppEnv = "test"
)

type (
	Config struct {
		AppEnv       AppEnv
		LogLevel     logrus.Level
		HTTP         HTTP
		Database     Database
		Kafka        Kafka
		Queue        Queue
		Notification Notification
		WorkerCount  int
	}

	HTTP struct {
		Port int
	}

	Database struct {
		Postgres   Postgres
		Redis      Redis
		ClickHouse ClickHouse
	}

	Postgres struct {
		Host     string
		Port     int
		Username string
		Password string
		Database string
	}

	Redis struct {
		Host     string
		Port     int
		Password string
		Database int
	}

	ClickHouse struct {
		Host     string
		Port     int
		Username string
		Password string
		Database string
	}

	Kafka struct {
		Host          string
		Port          int
		CalledTopic   string
		AuditTopic    string
		ConsumerGroup string
	}

	Queue struct {
		TokenPrefix     string
		Counters        []string
		AccrualInterval time.Duration
		EventBuffer     int
	}

	Notification struct {
		Template    string
		WorkerCount int
		MaxAttempts int
	}
)

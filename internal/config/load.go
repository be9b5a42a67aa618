package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const envPrefix = "APP"

// Load resolves configuration from defaults, an optional config.yaml and
// APP_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/queue-gateway")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "config : failed to read config file")
		}
	}

	level, err := logrus.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return nil, errors.Wrap(err, "config : invalid log level")
	}

	cfg := &Config{
		AppEnv:   AppEnv(v.GetString("app_env")),
		LogLevel: level,
		HTTP: HTTP{
			Port: v.GetInt("http.port"),
		},
		Database: Database{
			Postgres: Postgres{
				Host:     v.GetString("postgres.host"),
				Port:     v.GetInt("postgres.port"),
				Username: v.GetString("postgres.username"),
				Password: v.GetString("postgres.password"),
				Database: v.GetString("postgres.database"),
			},
			Redis: Redis{
				Host:     v.GetString("redis.host"),
				Port:     v.GetInt("redis.port"),
				Password: v.GetString("redis.password"),
				Database: v.GetInt("redis.database"),
			},
			ClickHouse: ClickHouse{
				Host:     v.GetString("clickhouse.host"),
				Port:     v.GetInt("clickhouse.port"),
				Username: v.GetString("clickhouse.username"),
				Password: v.GetString("clickhouse.password"),
				Database: v.GetString("clickhouse.database"),
			},
		},
		Kafka: Kafka{
			Host:          v.GetString("kafka.host"),
			Port:          v.GetInt("kafka.port"),
			CalledTopic:   v.GetString("kafka.called_topic"),
			AuditTopic:    v.GetString("kafka.audit_topic"),
			ConsumerGroup: v.GetString("kafka.consumer_group"),
		},
		Queue: Queue{
			TokenPrefix:     v.GetString("queue.token_prefix"),
			Counters:        stringList(v, "queue.counters"),
			AccrualInterval: v.GetDuration("queue.accrual_interval"),
			EventBuffer:     v.GetInt("queue.event_buffer"),
		},
		Notification: Notification{
			Template:    v.GetString("notification.template"),
			WorkerCount: v.GetInt("notification.worker_count"),
			MaxAttempts: v.GetInt("notification.max_attempts"),
		},
		WorkerCount: v.GetInt("worker_count"),
	}

	if cfg.Queue.AccrualInterval <= 0 {
		return nil, errors.Errorf("config : accrual interval must be positive, got %s", cfg.Queue.AccrualInterval)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", string(LocalEnv))
	v.SetDefault("log_level", "info")
	v.SetDefault("worker_count", 4)

	v.SetDefault("http.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.username", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.database", "queue")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)

	v.SetDefault("clickhouse.host", "localhost")
	v.SetDefault("clickhouse.port", 9000)
	v.SetDefault("clickhouse.username", "default")
	v.SetDefault("clickhouse.password", "")
	v.SetDefault("clickhouse.database", "queue")

	v.SetDefault("kafka.host", "localhost")
	v.SetDefault("kafka.port", 9092)
	v.SetDefault("kafka.called_topic", "queue.ticket.called")
	v.SetDefault("kafka.audit_topic", "queue.audit")
	v.SetDefault("kafka.consumer_group", "queue-gateway")

	v.SetDefault("queue.token_prefix", "T")
	v.SetDefault("queue.counters", "")
	v.SetDefault("queue.accrual_interval", "60s")
	v.SetDefault("queue.event_buffer", 256)

	v.SetDefault("notification.template", DefaultNotificationTemplate)
	v.SetDefault("notification.worker_count", 4)
	v.SetDefault("notification.max_attempts", 3)
}

// DefaultNotificationTemplate is sent when a ticket is called to a counter.
const DefaultNotificationTemplate = "Hello {{customerName}}! Your queue number {{token}} is now being served at counter {{counter}}. You waited {{waitTime}} minutes."

// stringList accepts both a YAML list and a comma separated env value.
func stringList(v *viper.Viper, key string) []string {
	raw := v.Get(key)

	s, ok := raw.(string)
	if !ok {
		return v.GetStringSlice(key)
	}

	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

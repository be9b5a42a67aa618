package entity

import "time"

// KafkaDlq keeps events that could not be published so they can be replayed.
type KafkaDlq struct {
	Id            int64 `gorm:"primaryKey"`
	Topic         string
	Key           string
	Payload       []byte
	AttemptCount  int
	LastError     string
	LastAttemptAt time.Time
}

func (KafkaDlq) TableName() string {
	return "kafka_dlq"
}

package domain

type KafkaMessage struct {
	Key     string
	Payload []byte
	Topic   string
	// Attempts counts failed writes before the message landed in the DLQ
	Attempts  int
	LastError string
}

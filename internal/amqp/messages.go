package amqp

import (
	"encoding/json"
	"time"
)

// BatchImportedMessage announces that one monthly upload was merged and
// persisted. It carries only the batch identity; consumers recompute the
// report data from storage so a stale message can never export stale rows.
type BatchImportedMessage struct {
	Filename     string    `json:"filename"`
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	AccountCount int       `json:"account_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewBatchImportedMessage creates a message for one imported batch.
func NewBatchImportedMessage(filename string, year, month, accountCount int) *BatchImportedMessage {
	return &BatchImportedMessage{
		Filename:     filename,
		Year:         year,
		Month:        month,
		AccountCount: accountCount,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *BatchImportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BatchImportedMessageFromJSON creates a message from JSON bytes.
func BatchImportedMessageFromJSON(data []byte) (*BatchImportedMessage, error) {
	var msg BatchImportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

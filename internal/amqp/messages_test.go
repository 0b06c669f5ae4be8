package amqp

import (
	"testing"
	"time"
)

func TestBatchImportedMessage_RoundTrip(t *testing.T) {
	msg := NewBatchImportedMessage("Saldenliste-07-2024.csv", 2024, 7, 42)
	if msg.Timestamp.IsZero() {
		t.Error("NewBatchImportedMessage() left Timestamp unset")
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() unexpected error: %v", err)
	}

	got, err := BatchImportedMessageFromJSON(data)
	if err != nil {
		t.Fatalf("BatchImportedMessageFromJSON() unexpected error: %v", err)
	}

	if got.Filename != msg.Filename || got.Year != msg.Year || got.Month != msg.Month || got.AccountCount != msg.AccountCount {
		t.Errorf("round trip = %+v, want %+v", got, msg)
	}
	if !got.Timestamp.Truncate(time.Millisecond).Equal(msg.Timestamp.Truncate(time.Millisecond)) {
		t.Errorf("timestamp round trip = %v, want %v", got.Timestamp, msg.Timestamp)
	}
}

func TestBatchImportedMessageFromJSON_Invalid(t *testing.T) {
	if _, err := BatchImportedMessageFromJSON([]byte("not json")); err == nil {
		t.Error("BatchImportedMessageFromJSON() = nil error for garbage input")
	}
}

package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DatasetInitializedMessage announces that the transaction store was
// replaced with a fresh copy of the dataset.
type DatasetInitializedMessage struct {
	// ID doubles as the AMQP message id so consumers can drop redeliveries.
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Inserted   int       `json:"inserted"`
	Skipped    int       `json:"skipped"`
	DurationMs int64     `json:"durationMs"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewDatasetInitializedMessage(source string, inserted, skipped int, d time.Duration) *DatasetInitializedMessage {
	return &DatasetInitializedMessage{
		ID:         uuid.NewString(),
		Source:     source,
		Inserted:   inserted,
		Skipped:    skipped,
		DurationMs: d.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
}

func (m *DatasetInitializedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DatasetInitializedMessageFromJSON(data []byte) (*DatasetInitializedMessage, error) {
	var msg DatasetInitializedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

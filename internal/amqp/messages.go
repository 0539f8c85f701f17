package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Routing keys on the direct exchange.
const (
	RoutingKeyRefreshRequest    = "dashboard.refresh.request"
	RoutingKeySnapshotRefreshed = "dashboard.snapshot.refreshed"
)

// RefreshRequestMessage asks the dashboard to reload its dataset, for
// example after an import changed the source tables.
type RefreshRequestMessage struct {
	RequestID string    `json:"request_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRefreshRequestMessage(reason string) *RefreshRequestMessage {
	return &RefreshRequestMessage{
		RequestID: uuid.NewString(),
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *RefreshRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RefreshRequestMessageFromJSON(data []byte) (*RefreshRequestMessage, error) {
	var msg RefreshRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SnapshotRefreshedMessage announces that a new dataset snapshot is live.
type SnapshotRefreshedMessage struct {
	SnapshotID string    `json:"snapshot_id"`
	Lessons    int       `json:"lessons"`
	Clients    int       `json:"clients"`
	LoadedAt   time.Time `json:"loaded_at"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewSnapshotRefreshedMessage(snapshotID string, lessons, clients int, loadedAt time.Time) *SnapshotRefreshedMessage {
	return &SnapshotRefreshedMessage{
		SnapshotID: snapshotID,
		Lessons:    lessons,
		Clients:    clients,
		LoadedAt:   loadedAt,
		Timestamp:  time.Now(),
	}
}

func (m *SnapshotRefreshedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SnapshotRefreshedMessageFromJSON(data []byte) (*SnapshotRefreshedMessage, error) {
	var msg SnapshotRefreshedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

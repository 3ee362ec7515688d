package model

import (
	"time"

	"github.com/google/uuid"
)

// ConfigReloadedEvent is emitted when a changed configuration snapshot is
// published. It carries key names only, never values.
type ConfigReloadedEvent struct {
	ID          uuid.UUID `json:"id"`
	Service     string    `json:"service"`
	KeyCount    int       `json:"key_count"`
	ChangedKeys []string  `json:"changed_keys"`
	LoadedAt    time.Time `json:"loaded_at"`
	Timestamp   time.Time `json:"timestamp"`
}

// KeysResponse lists the keys currently exposed by the provider.
type KeysResponse struct {
	Count    int       `json:"count"`
	Keys     []string  `json:"keys"`
	LoadedAt time.Time `json:"loaded_at"`
}

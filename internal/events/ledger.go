// Package events defines the ledger event payloads exported through the outbox.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event type names, also used as outbox catalog keys.
const (
	TypeDayOpened     = "ledger.day_opened"
	TypeEntryAppended = "ledger.entry_appended"
	TypeBonusGranted  = "ledger.bonus_granted"
)

// DayOpened is emitted when the first event of a logical day creates its row.
type DayOpened struct {
	Day              string    `json:"day"`
	CumulativeHeight int       `json:"cumulative_height"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// EntryAppended mirrors one journal entry.
type EntryAppended struct {
	EntryID    int64     `json:"entry_id"`
	Day        string    `json:"day"`
	Slot       string    `json:"slot,omitempty"`
	Kind       string    `json:"kind"`
	Delta      int       `json:"delta"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BonusGranted is emitted by the single request that wins a day's bonus.
type BonusGranted struct {
	Day        string    `json:"day"`
	Amount     int       `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ErrUnknownType is returned by Decode for event types this build does not know.
var ErrUnknownType = errors.New("unknown ledger event type")

// Decode unmarshals payload into the struct registered for eventType and
// returns the day it belongs to.
func Decode(eventType string, payload []byte) (any, string, error) {
	switch eventType {
	case TypeDayOpened:
		var ev DayOpened
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, "", fmt.Errorf("decode %s: %w", eventType, err)
		}
		return ev, ev.Day, nil
	case TypeEntryAppended:
		var ev EntryAppended
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, "", fmt.Errorf("decode %s: %w", eventType, err)
		}
		return ev, ev.Day, nil
	case TypeBonusGranted:
		var ev BonusGranted
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, "", fmt.Errorf("decode %s: %w", eventType, err)
		}
		return ev, ev.Day, nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownType, eventType)
	}
}

package domain

import (
	"fmt"
	"time"
)

// SlotLength is the width of one question slot.
const SlotLength = 30 * time.Minute

// Slot is one question bucket of a logical day.
type Slot struct {
	Key      string    `json:"key"`
	Range    string    `json:"range"`
	StartsAt time.Time `json:"starts_at"`
	Answered bool      `json:"answered"`
}

// SlotGrid lists the slots that have started so far and the first one still
// awaiting an answer.
type SlotGrid struct {
	Day   Day    `json:"day"`
	Slots []Slot `json:"slots"`
	Next  *Slot  `json:"next,omitempty"`
}

// SlotKey formats the slot key clients submit, e.g. "6:00" or "13:30".
func SlotKey(t time.Time) string {
	return fmt.Sprintf("%d:%02d", t.Hour(), t.Minute())
}

// buildSlotGrid lays out slots from the start of day up to now. Keys are
// wall-clock times, so when a DST fall-back repeats an hour only the first
// occurrence of each key is listed.
func buildSlotGrid(p Partitioner, day Day, now time.Time, answered map[string]struct{}) SlotGrid {
	start := p.Start(day)
	end := start.AddDate(0, 0, 1)
	now = now.In(p.location())

	grid := SlotGrid{Day: day, Slots: make([]Slot, 0)}
	seen := make(map[string]struct{})
	for cur := start; cur.Before(now) && cur.Before(end); cur = cur.Add(SlotLength) {
		next := cur.Add(SlotLength)
		key := SlotKey(cur)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		_, done := answered[key]
		grid.Slots = append(grid.Slots, Slot{
			Key:      key,
			Range:    fmt.Sprintf("%02d:%02d〜%02d:%02d", cur.Hour(), cur.Minute(), next.Hour(), next.Minute()),
			StartsAt: cur,
			Answered: done,
		})
	}
	for i := range grid.Slots {
		if !grid.Slots[i].Answered {
			slot := grid.Slots[i]
			grid.Next = &slot
			break
		}
	}
	return grid
}

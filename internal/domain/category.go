package domain

import "strings"

// Category is the closed set of activity kinds that own a ledger counter.
type Category int

const (
	// Uncategorized kinds move the score but increment no counter.
	Uncategorized Category = iota
	SleepEat
	Work
	Thinking
	Study
	Exercise
	Game
)

var categoryKeys = map[Category]string{
	SleepEat: "sleep_eat",
	Work:     "work",
	Thinking: "thinking",
	Study:    "study",
	Exercise: "exercise",
	Game:     "game",
}

// Display labels, also accepted as activity names.
var categoryLabels = map[Category]string{
	SleepEat: "寝食",
	Work:     "仕事",
	Thinking: "知的活動",
	Study:    "勉強",
	Exercise: "運動",
	Game:     "ゲーム",
}

var categoryByName = func() map[string]Category {
	out := make(map[string]Category, 2*len(categoryKeys))
	for c, key := range categoryKeys {
		out[key] = c
		out[categoryLabels[c]] = c
	}
	return out
}()

// Categories lists the known categories in counter order.
func Categories() []Category {
	return []Category{SleepEat, Work, Thinking, Study, Exercise, Game}
}

// ParseCategory resolves a canonical key or display label. Anything else is
// Uncategorized.
func ParseCategory(kind string) Category {
	if c, ok := categoryByName[strings.TrimSpace(kind)]; ok {
		return c
	}
	return Uncategorized
}

// Known reports whether c owns a counter.
func (c Category) Known() bool {
	_, ok := categoryKeys[c]
	return ok
}

// Key returns the canonical key, or "" for Uncategorized.
func (c Category) Key() string { return categoryKeys[c] }

// Label returns the display label, or "" for Uncategorized.
func (c Category) Label() string { return categoryLabels[c] }

func (c Category) String() string {
	if !c.Known() {
		return "uncategorized"
	}
	return c.Key()
}

// CategoryCounts holds the per-day counter for every known category.
type CategoryCounts struct {
	SleepEat int `json:"sleep_eat"`
	Work     int `json:"work"`
	Thinking int `json:"thinking"`
	Study    int `json:"study"`
	Exercise int `json:"exercise"`
	Game     int `json:"game"`
}

func (cc *CategoryCounts) field(c Category) *int {
	switch c {
	case SleepEat:
		return &cc.SleepEat
	case Work:
		return &cc.Work
	case Thinking:
		return &cc.Thinking
	case Study:
		return &cc.Study
	case Exercise:
		return &cc.Exercise
	case Game:
		return &cc.Game
	}
	return nil
}

// Get returns the counter for c; Uncategorized is always 0.
func (cc CategoryCounts) Get(c Category) int {
	if f := cc.field(c); f != nil {
		return *f
	}
	return 0
}

// Inc bumps the counter for c and is a no-op for Uncategorized.
func (cc *CategoryCounts) Inc(c Category) {
	if f := cc.field(c); f != nil {
		*f++
	}
}

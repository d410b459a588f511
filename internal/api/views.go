package api

import "example.com/altitude/internal/domain"

// SummaryView is the JSON shape of one ledger row.
type SummaryView struct {
	Day              domain.Day            `json:"day"`
	Recorded         bool                  `json:"recorded"`
	Counts           domain.CategoryCounts `json:"counts"`
	CumulativeHeight int                   `json:"cumulative_height"`
	HeightChange     int                   `json:"height_change"`
	BonusGiven       bool                  `json:"bonus_given"`
}

// LogActivityResponse is returned by POST /v1/log.
type LogActivityResponse struct {
	Status   string      `json:"status"`
	EntryID  int64       `json:"entry_id"`
	Day      domain.Day  `json:"day"`
	Category string      `json:"category"`
	Summary  SummaryView `json:"summary"`
}

// ApplyBonusResponse is returned by POST /v1/bonus.
type ApplyBonusResponse struct {
	Status  string      `json:"status"`
	Applied bool        `json:"applied"`
	Summary SummaryView `json:"summary"`
}

// BonusStatsResponse is returned by GET /v1/bonus/stats.
type BonusStatsResponse struct {
	Status     string             `json:"status"`
	WindowDays int                `json:"window_days"`
	Goals      []domain.BonusStat `json:"goals"`
}

// ListSummaryResponse packages ledger rows.
type ListSummaryResponse struct {
	Status     string        `json:"status"`
	Items      []SummaryView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// AnsweredSlotsResponse is returned by GET /v1/slots.
type AnsweredSlotsResponse struct {
	Status string     `json:"status"`
	Day    domain.Day `json:"day"`
	Slots  []string   `json:"slots"`
}

// AltitudeResponse is returned by GET /v1/altitude.
type AltitudeResponse struct {
	Status   string     `json:"status"`
	Day      domain.Day `json:"day"`
	Altitude int        `json:"altitude"`
}

// JournalResponse is returned by GET /v1/journal.
type JournalResponse struct {
	Status  string                `json:"status"`
	Day     domain.Day            `json:"day"`
	Entries []domain.JournalEntry `json:"entries"`
}

func toSummaryView(row domain.LedgerRow, recorded bool) SummaryView {
	return SummaryView{
		Day:              row.Day,
		Recorded:         recorded,
		Counts:           row.Counts,
		CumulativeHeight: row.CumulativeHeight,
		HeightChange:     row.HeightChange,
		BonusGiven:       row.BonusGiven,
	}
}

func toSummaryViews(rows []domain.LedgerRow) []SummaryView {
	out := make([]SummaryView, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSummaryView(row, true))
	}
	return out
}

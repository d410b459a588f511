package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"example.com/altitude/internal/domain"
)

// LogActivityRequest is the payload for POST /v1/log. Action is accepted as
// an alias of Activity for older clients.
type LogActivityRequest struct {
	Activity string          `json:"activity"`
	Action   string          `json:"action"`
	Delta    json.RawMessage `json:"delta"`
	Slot     string          `json:"slot"`
}

// Input validates the request and converts it to a domain input.
func (r LogActivityRequest) Input() (domain.LogActivityInput, error) {
	kind := strings.TrimSpace(r.Activity)
	if kind == "" {
		kind = strings.TrimSpace(r.Action)
	}
	if kind == "" {
		return domain.LogActivityInput{}, &domain.ValidationError{Field: "activity", Reason: "is required"}
	}
	delta, err := parseInt("delta", r.Delta)
	if err != nil {
		return domain.LogActivityInput{}, err
	}
	return domain.LogActivityInput{Kind: kind, Delta: delta, Slot: r.Slot}, nil
}

// ApplyBonusRequest is the payload for POST /v1/bonus.
type ApplyBonusRequest struct {
	BonusAmount json.RawMessage `json:"bonus_amount"`
	Goals       map[string]bool `json:"goals"`
}

// Input validates the request and converts it to a domain input.
func (r ApplyBonusRequest) Input() (domain.ApplyBonusInput, error) {
	amount, err := parseInt("bonus_amount", r.BonusAmount)
	if err != nil {
		return domain.ApplyBonusInput{}, err
	}
	return domain.ApplyBonusInput{Amount: amount, Goals: r.Goals}, nil
}

// parseInt accepts a JSON integer or a string holding one, bounded by
// domain.MaxDelta. Absent and null mean zero; anything else is rejected.
func parseInt(field string, raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, &domain.ValidationError{Field: field, Reason: "must be an integer"}
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return 0, nil
		}
	}

	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, &domain.ValidationError{Field: field, Reason: "must be an integer"}
	}
	if err := domain.CheckDelta(field, n); err != nil {
		return 0, err
	}
	return n, nil
}

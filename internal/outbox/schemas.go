package outbox

import "example.com/altitude/internal/events"

const dayOpenedSchema = `{
  "type": "object",
  "title": "LedgerDayOpened",
  "properties": {
    "day": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
    "cumulative_height": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["day", "cumulative_height", "occurred_at"],
  "additionalProperties": false
}`

const entryAppendedSchema = `{
  "type": "object",
  "title": "LedgerEntryAppended",
  "properties": {
    "entry_id": {"type": "integer"},
    "day": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
    "slot": {"type": "string"},
    "kind": {"type": "string"},
    "delta": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["entry_id", "day", "kind", "delta", "occurred_at"],
  "additionalProperties": false
}`

const bonusGrantedSchema = `{
  "type": "object",
  "title": "LedgerBonusGranted",
  "properties": {
    "day": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
    "amount": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["day", "amount", "occurred_at"],
  "additionalProperties": false
}`

var schemaCatalog = map[string]string{
	events.TypeDayOpened:     dayOpenedSchema,
	events.TypeEntryAppended: entryAppendedSchema,
	events.TypeBonusGranted:  bonusGrantedSchema,
}

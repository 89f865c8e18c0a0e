package store

import (
	"encoding/json"

	"github.com/quietharbor/harbormind/internal/models"
)

// Payload field names. Each concept has one canonical name plus the
// enumerated legacy aliases older writers used. Decoding happens once
// here, at the store boundary.
var (
	tagsAliases  = []string{"tags", "labels"}
	winsAliases  = []string{"wins", "victories", "small_wins"}
	levelAliases = []string{"level", "intensity"}
)

// DecodePayload fills Entry.Tags and Entry.Wins from the raw payload
// document. A malformed or empty payload yields an entry with no tags
// and no wins rather than an error; aggregation over samples must not
// fail on a single bad record.
func DecodePayload(e *models.Entry) {
	e.Tags = nil
	e.Wins = nil
	if e.Payload == "" {
		return
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(e.Payload), &doc); err != nil {
		return
	}

	e.Tags = decodeStrings(doc, tagsAliases)
	e.Wins = decodeStrings(doc, winsAliases)

	// Legacy rows carried the level inside the payload; the column wins
	// when both are present.
	if e.Level == 0 {
		if lvl, ok := decodeInt(doc, levelAliases); ok {
			e.Level = lvl
		}
	}
}

// EncodePayload serializes tags and wins under their canonical names
func EncodePayload(tags, wins []string) (string, error) {
	doc := map[string]interface{}{
		"tags": tags,
		"wins": wins,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeStrings(doc map[string]json.RawMessage, aliases []string) []string {
	for _, name := range aliases {
		raw, ok := doc[name]
		if !ok {
			continue
		}
		var vals []string
		if err := json.Unmarshal(raw, &vals); err != nil {
			continue
		}
		return vals
	}
	return nil
}

func decodeInt(doc map[string]json.RawMessage, aliases []string) (int, bool) {
	for _, name := range aliases {
		raw, ok := doc[name]
		if !ok {
			continue
		}
		var v int
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}

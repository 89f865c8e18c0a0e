package store

import (
	"reflect"
	"testing"

	"github.com/quietharbor/harbormind/internal/models"
)

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		level     int
		wantTags  []string
		wantWins  []string
		wantLevel int
	}{
		{
			name:      "canonical names",
			payload:   `{"tags":["work","sleep"],"wins":["got outside"]}`,
			level:     5,
			wantTags:  []string{"work", "sleep"},
			wantWins:  []string{"got outside"},
			wantLevel: 5,
		},
		{
			name:      "legacy labels alias",
			payload:   `{"labels":["family"]}`,
			level:     3,
			wantTags:  []string{"family"},
			wantLevel: 3,
		},
		{
			name:      "legacy victories alias",
			payload:   `{"victories":["slept well"]}`,
			level:     3,
			wantWins:  []string{"slept well"},
			wantLevel: 3,
		},
		{
			name:      "legacy small_wins alias",
			payload:   `{"small_wins":["made tea"]}`,
			level:     3,
			wantWins:  []string{"made tea"},
			wantLevel: 3,
		},
		{
			name:      "canonical wins over alias",
			payload:   `{"wins":["a"],"victories":["b"]}`,
			level:     3,
			wantWins:  []string{"a"},
			wantLevel: 3,
		},
		{
			name:      "payload level fills missing column",
			payload:   `{"intensity":7}`,
			level:     0,
			wantLevel: 7,
		},
		{
			name:      "column wins over payload level",
			payload:   `{"level":2}`,
			level:     8,
			wantLevel: 8,
		},
		{
			name:      "empty payload",
			payload:   "",
			level:     4,
			wantLevel: 4,
		},
		{
			name:      "malformed payload tolerated",
			payload:   `{"tags": [broken`,
			level:     4,
			wantLevel: 4,
		},
		{
			name:      "wrong-typed field skipped",
			payload:   `{"tags":"not-a-list","labels":["fallback"]}`,
			level:     4,
			wantTags:  []string{"fallback"},
			wantLevel: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := models.Entry{Payload: tt.payload, Level: tt.level}
			DecodePayload(&e)

			if !reflect.DeepEqual(e.Tags, tt.wantTags) {
				t.Errorf("Tags = %v, want %v", e.Tags, tt.wantTags)
			}
			if !reflect.DeepEqual(e.Wins, tt.wantWins) {
				t.Errorf("Wins = %v, want %v", e.Wins, tt.wantWins)
			}
			if e.Level != tt.wantLevel {
				t.Errorf("Level = %d, want %d", e.Level, tt.wantLevel)
			}
		})
	}
}

func TestEncodePayloadRoundTrip(t *testing.T) {
	raw, err := EncodePayload([]string{"work"}, []string{"ate lunch"})
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}

	e := models.Entry{Payload: raw, Level: 5}
	DecodePayload(&e)

	if !reflect.DeepEqual(e.Tags, []string{"work"}) {
		t.Errorf("Tags = %v after round trip", e.Tags)
	}
	if !reflect.DeepEqual(e.Wins, []string{"ate lunch"}) {
		t.Errorf("Wins = %v after round trip", e.Wins)
	}
}

package music

import (
	"errors"
	"testing"
)

func TestParseSequence(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Sequence
		wantErr error
	}{
		{name: "Default synced", input: "2,3,4", want: Sequence{2, 3, 4}},
		{name: "Whitespace", input: " 5 , 1 ", want: Sequence{5, 1}},
		{name: "Full", input: "6,5,4,3,2,1", want: Sequence{6, 5, 4, 3, 2, 1}},
		{name: "Blank entries skipped", input: "2,,3", want: Sequence{2, 3}},
		{name: "Not a number", input: "2,x", wantErr: ErrInvalidSequenceFormat},
		{name: "Float", input: "2.5", wantErr: ErrInvalidSequenceFormat},
		{name: "Duplicate", input: "2,2", wantErr: ErrInvalidSequence},
		{name: "Out of range", input: "0,2", wantErr: ErrInvalidSequence},
		{name: "Too large", input: "7", wantErr: ErrInvalidSequence},
		{name: "Empty", input: "", wantErr: ErrInvalidSequence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSequence(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want.String() {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDefaultSequencesValid(t *testing.T) {
	for _, seq := range []Sequence{DefaultSyncedSequence, DefaultPlainSequence, FastSequence} {
		if err := seq.Validate(); err != nil {
			t.Errorf("%s: %v", seq, err)
		}
	}
}

func TestGetProviderByName(t *testing.T) {
	cases := map[string]ProviderID{
		"genius":        ProviderGenius,
		"LRCLIB":        ProviderLRCLib,
		"3":             ProviderSimpMusic,
		"youtube music": ProviderYouTubeMusic,
		"lyrics.ovh":    ProviderLyricsOvh,
		" chartlyrics ": ProviderChartLyrics,
	}
	for name, want := range cases {
		got, err := GetProviderByName(name)
		if err != nil || got != want {
			t.Errorf("%q: expected %s, got %s (%v)", name, want, got, err)
		}
	}
	if _, err := GetProviderByName("spotify"); err == nil {
		t.Errorf("expected error for unknown provider")
	}
}

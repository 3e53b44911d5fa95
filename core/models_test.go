package core

import (
	"testing"
)

func TestFingerprintFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same fingerprint", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f1 := FingerprintFromContent(tt.content)
			f2 := FingerprintFromContent(tt.content)

			if f1 != f2 {
				t.Errorf("FingerprintFromContent() produced different values for same content: %d vs %d", f1, f2)
			}
		})
	}
}

func TestFingerprintFromContent_Different(t *testing.T) {
	f1 := FingerprintFromContent("content1")
	f2 := FingerprintFromContent("content2")

	if f1 == f2 {
		t.Errorf("FingerprintFromContent() produced same value for different content")
	}
}

func TestFingerprint_String(t *testing.T) {
	if got := Fingerprint(0xab).String(); got != "00000000000000ab" {
		t.Errorf("Fingerprint.String() = %q, want zero padded hex", got)
	}
	if got := len(FingerprintFromContent("x").String()); got != 16 {
		t.Errorf("Fingerprint.String() length = %d, want 16", got)
	}
}

func TestUtility_Fingerprint(t *testing.T) {
	base := Utility{
		ID:       "1",
		Name:     "Water Fountain",
		Type:     "water",
		Building: "Nest",
		Floor:    "1",
		Position: Position{Lat: 49.2666, Lng: -123.2499},
	}

	t.Run("derived fields are ignored", func(t *testing.T) {
		reported := base
		reported.Status = StatusReported
		reported.Reports = 4
		if base.Fingerprint() != reported.Fingerprint() {
			t.Error("status and report count should not change the fingerprint")
		}
	})

	t.Run("descriptive fields are included", func(t *testing.T) {
		moved := base
		moved.Floor = "2"
		if base.Fingerprint() == moved.Fingerprint() {
			t.Error("changing the floor should change the fingerprint")
		}
	})

	t.Run("field boundaries are respected", func(t *testing.T) {
		a := Utility{ID: "1", Name: "ab", Type: "c"}
		b := Utility{ID: "1", Name: "a", Type: "bc"}
		if a.Fingerprint() == b.Fingerprint() {
			t.Error("shifting text between fields should change the fingerprint")
		}
	})
}

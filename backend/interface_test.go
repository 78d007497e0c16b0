package backend

import (
	"testing"
	"time"
)

func TestNormalizePageID(t *testing.T) {
	want := "e0d34b08-31c2-4e30-a48a-c235e425459b"
	for _, in := range []string{"e0d34b0831c24e30a48ac235e425459b", want, "  " + want + " "} {
		got, err := NormalizePageID(in)
		if err != nil {
			t.Fatalf("NormalizePageID(%q) error = %v", in, err)
		}
		if got != want {
			t.Errorf("NormalizePageID(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := NormalizePageID("not-a-page"); err == nil {
		t.Error("expected error for malformed id")
	}
}

func TestFindProject(t *testing.T) {
	projects := []Project{
		{ID: "e0d34b08-31c2-4e30-a48a-c235e425459b", Title: "Garden"},
		{ID: "d1c2b6fa-b848-4363-8eb8-8480f0d4223e", Title: "Taxes"},
	}

	tests := []struct {
		ref  string
		want string
	}{
		{"garden", "Garden"},
		{"TAXES", "Taxes"},
		{"d1c2b6fab84843638eb88480f0d4223e", "Taxes"},
		{"e0d34b08-31c2-4e30-a48a-c235e425459b", "Garden"},
		{"Unknown", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got := FindProject(projects, tt.ref)
			if tt.want == "" {
				if got != nil {
					t.Errorf("FindProject(%q) = %v, want nil", tt.ref, got)
				}
				return
			}
			if got == nil || got.Title != tt.want {
				t.Errorf("FindProject(%q) = %v, want %s", tt.ref, got, tt.want)
			}
		})
	}
}

func TestOpenURL(t *testing.T) {
	got := OpenURL("e0d34b08-31c2-4e30-a48a-c235e425459b")
	if got != "notion://notion.so/e0d34b0831c24e30a48ac235e425459b" {
		t.Errorf("OpenURL() = %q", got)
	}
}

func TestActionItemDoDateTime(t *testing.T) {
	plain := "2026-03-07"
	stamp := "2026-03-07T09:30:00.000+02:00"
	bad := "someday"

	if (ActionItem{}).DoDateTime() != nil {
		t.Error("nil DoDate should parse to nil")
	}
	if got := (ActionItem{DoDate: &plain}).DoDateTime(); got == nil || got.Day() != 7 {
		t.Errorf("plain date parsed as %v", got)
	}
	if got := (ActionItem{DoDate: &stamp}).DoDateTime(); got == nil || !got.Equal(time.Date(2026, 3, 7, 7, 30, 0, 0, time.UTC)) {
		t.Errorf("timestamp parsed as %v", got)
	}
	if (ActionItem{DoDate: &bad}).DoDateTime() != nil {
		t.Error("unparseable DoDate should parse to nil")
	}
}

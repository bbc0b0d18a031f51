package media

import (
	"context"
	"strings"
	"testing"

	"timeline-pipeline/config"
)

func TestEscapeDrawtext(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "The Silk Road", "The Silk Road"},
		{"apostrophe", "Rome's Fall", "Rome\\'s Fall"},
		{"colon", "Part 1: Origins", "Part 1\\: Origins"},
		{"percent", "90% of trade", "90\\% of trade"},
		{"backslash", `a\b`, `a\\b`},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EscapeDrawtext(tc.in); got != tc.want {
				t.Fatalf("EscapeDrawtext(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSegmentFilter(t *testing.T) {
	tool := NewTool(config.Default())

	base := tool.segmentFilter("")
	if !strings.Contains(base, "scale=1080:1920") {
		t.Fatalf("filter lacks canvas scale: %q", base)
	}
	if !strings.Contains(base, "pad=1080:1920") {
		t.Fatalf("filter lacks padding: %q", base)
	}
	if strings.Contains(base, "drawtext") {
		t.Fatalf("empty caption must not draw text: %q", base)
	}

	captioned := tool.segmentFilter("Rome's Fall")
	if !strings.Contains(captioned, "drawtext=text='Rome\\'s Fall'") {
		t.Fatalf("caption not escaped into filter: %q", captioned)
	}
	if !strings.Contains(captioned, "boxcolor=black@0.5") {
		t.Fatalf("caption box missing: %q", captioned)
	}
}

func TestFmtSeconds(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{2, "2.000"},
		{3.5, "3.500"},
		{12.3456, "12.346"},
	}
	for _, tc := range cases {
		if got := fmtSeconds(tc.in); got != tc.want {
			t.Fatalf("fmtSeconds(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStillSegmentRejectsZeroDuration(t *testing.T) {
	tool := NewTool(config.Default())
	err := tool.StillSegment(context.Background(), SegmentSpec{OutPath: "out.mp4"})
	if err == nil {
		t.Fatal("expected error for zero duration")
	}
}

func TestConcatRejectsEmptyList(t *testing.T) {
	tool := NewTool(config.Default())
	if err := tool.Concat(context.Background(), nil, "out.mp4"); err == nil {
		t.Fatal("expected error for empty segment list")
	}
}

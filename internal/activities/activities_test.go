package activities

import (
	"testing"

	"streamscribe/internal/models"
)

func TestTranscriptExceedsCeiling(t *testing.T) {
	segs := func(ends ...float64) []models.TranscriptSegment {
		out := make([]models.TranscriptSegment, len(ends))
		for i, e := range ends {
			out[i] = models.TranscriptSegment{VideoID: "v1", Seq: i, EndSecs: e}
		}
		return out
	}

	cases := []struct {
		name       string
		segments   []models.TranscriptSegment
		maxSeconds int
		want       bool
	}{
		{"under ceiling", segs(10, 55.5), 60, false},
		{"exactly at ceiling", segs(30, 60), 60, false},
		{"over ceiling", segs(30, 60.5), 60, true},
		{"ceiling disabled", segs(30, 7200), 0, false},
		{"no segments", nil, 60, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := transcriptExceedsCeiling(tc.segments, tc.maxSeconds); got != tc.want {
				t.Fatalf("transcriptExceedsCeiling(%v, %d) = %v, want %v",
					tc.segments, tc.maxSeconds, got, tc.want)
			}
		})
	}
}

package artifacts

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"streamscribe/internal/models"
)

func TestWriteTranscript(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "videos", "v1")
	segs := []models.TranscriptSegment{
		{VideoID: "v1", Seq: 0, StartSecs: 0, EndSecs: 4.5, Text: "first"},
		{VideoID: "v1", Seq: 1, StartSecs: 4.5, EndSecs: 9.2, Text: "second"},
	}

	summaryPath, segmentsPath, err := WriteTranscript(dir, "v1", segs)
	if err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}

	raw, err := os.ReadFile(summaryPath)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var sum Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.VideoID != "v1" || sum.SegmentCount != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.DurationSecs != 10 || sum.EndSecs != 9.2 {
		t.Fatalf("duration not derived from last segment: %+v", sum)
	}

	f, err := os.Open(segmentsPath)
	if err != nil {
		t.Fatalf("open segments: %v", err)
	}
	defer f.Close()
	var got []models.TranscriptSegment
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var s models.TranscriptSegment
		if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
			t.Fatalf("decode segment row: %v", err)
		}
		got = append(got, s)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan segments: %v", err)
	}
	if len(got) != 2 || got[1].Text != "second" || got[1].Seq != 1 {
		t.Fatalf("unexpected segment rows: %+v", got)
	}
}

func TestWriteTranscriptEmpty(t *testing.T) {
	dir := t.TempDir()
	summaryPath, segmentsPath, err := WriteTranscript(dir, "v2", nil)
	if err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}
	raw, err := os.ReadFile(summaryPath)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var sum Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.SegmentCount != 0 || sum.DurationSecs != 0 {
		t.Fatalf("unexpected summary for empty transcript: %+v", sum)
	}
	info, err := os.Stat(segmentsPath)
	if err != nil {
		t.Fatalf("stat segments: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("empty transcript wrote %d segment bytes", info.Size())
	}
}

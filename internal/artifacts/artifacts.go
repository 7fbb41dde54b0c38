// Package artifacts exports finished transcripts to the data directory so
// they survive independently of the database: a summary JSON per video plus
// one JSONL row per segment.
package artifacts

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"streamscribe/internal/models"
	"streamscribe/internal/util"
)

// Summary is the transcript-level header written next to the segment rows.
type Summary struct {
	VideoID      string  `json:"video_id"`
	SegmentCount int     `json:"segment_count"`
	DurationSecs int     `json:"duration_secs"`
	GeneratedAt  string  `json:"generated_at"`
	EndSecs      float64 `json:"end_secs,omitempty"`
}

// WriteTranscript writes transcript.json and segments.jsonl for a video under
// dir. Both files land via rename so a crash never leaves a partial artifact
// at the final path.
func WriteTranscript(dir, videoID string, segments []models.TranscriptSegment) (summaryPath, segmentsPath string, err error) {
	if err := util.EnsureDir(dir); err != nil {
		return "", "", err
	}

	summary := Summary{
		VideoID:      videoID,
		SegmentCount: len(segments),
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if len(segments) > 0 {
		last := segments[len(segments)-1]
		summary.EndSecs = last.EndSecs
		summary.DurationSecs = int(math.Ceil(last.EndSecs))
	}

	summaryPath = filepath.Join(dir, "transcript.json")
	err = writeAtomic(summaryPath, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	})
	if err != nil {
		return "", "", fmt.Errorf("write transcript summary: %w", err)
	}

	segmentsPath = filepath.Join(dir, "segments.jsonl")
	err = writeAtomic(segmentsPath, func(f *os.File) error {
		w := bufio.NewWriter(f)
		enc := json.NewEncoder(w)
		for _, s := range segments {
			if err := enc.Encode(s); err != nil {
				return err
			}
		}
		return w.Flush()
	})
	if err != nil {
		return "", "", fmt.Errorf("write transcript segments: %w", err)
	}
	return summaryPath, segmentsPath, nil
}

func writeAtomic(path string, fill func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

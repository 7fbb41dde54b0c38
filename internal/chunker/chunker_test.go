package chunker

import (
	"reflect"
	"strings"
	"testing"

	"streamscribe/internal/models"
)

func seg(seq int, start, end float64, text string) models.TranscriptSegment {
	return models.TranscriptSegment{VideoID: "v1", Seq: seq, StartSecs: start, EndSecs: end, Text: text}
}

func TestSplitOverlapReconstruction(t *testing.T) {
	// Three segments of 300 chars each against max=500/overlap=50: every
	// boundary must carry exactly 50 chars, and stripping the carried prefix
	// from each chunk after the first must reassemble the joined transcript.
	texts := []string{
		strings.Repeat("a", 300),
		strings.Repeat("b", 300),
		strings.Repeat("c", 300),
	}
	segments := []models.TranscriptSegment{
		seg(0, 0, 200, texts[0]),
		seg(1, 200, 400, texts[1]),
		seg(2, 400, 600, texts[2]),
	}
	chunks := Split("v1", segments, Config{MaxChunkChars: 500, OverlapChars: 50})
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Text
		if prev[len(prev)-50:] != chunks[i].Text[:50] {
			t.Fatalf("chunk %d does not start with previous chunk's 50-char tail", i)
		}
	}
	rebuilt := chunks[0].Text
	for i := 1; i < len(chunks); i++ {
		rebuilt += chunks[i].Text[50:]
	}
	if want := strings.Join(texts, " "); rebuilt != want {
		t.Fatalf("reconstruction mismatch: got %d chars want %d", len(rebuilt), len(want))
	}
	if chunks[1].StartSecs != 200 || chunks[1].EndSecs != 400 {
		t.Fatalf("chunk timestamps not derived from covered segments: %+v", chunks[1])
	}
}

func TestSplitDeterministic(t *testing.T) {
	segments := []models.TranscriptSegment{
		seg(0, 0, 5, strings.Repeat("hello world ", 40)),
		seg(1, 5, 9, strings.Repeat("more words ", 35)),
		seg(2, 9, 14, strings.Repeat("tail text ", 20)),
	}
	cfg := Config{MaxChunkChars: 300, OverlapChars: 40}
	a := Split("v1", segments, cfg)
	b := Split("v1", segments, cfg)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two runs over the same segments produced different chunks")
	}
}

func TestSplitBoundsAndContiguity(t *testing.T) {
	segments := []models.TranscriptSegment{
		seg(0, 0, 3, strings.Repeat("x", 120)),
		seg(1, 3, 6, strings.Repeat("y", 90)),
		seg(2, 6, 9, strings.Repeat("z", 250)),
		seg(3, 9, 12, strings.Repeat("w", 80)),
	}
	chunks := Split("v1", segments, Config{MaxChunkChars: 200, OverlapChars: 30})
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Fatalf("chunk indices not contiguous from 0: got %d at position %d", c.ChunkIndex, i)
		}
		if c.CharLen > 200 {
			t.Fatalf("chunk %d exceeds max chars: %d", i, c.CharLen)
		}
		if c.CharLen != len([]rune(c.Text)) {
			t.Fatalf("chunk %d char_len %d does not match text", i, c.CharLen)
		}
	}
}

func TestSplitForceSplitsOversizedSegment(t *testing.T) {
	long := strings.Repeat("q", 1200)
	chunks := Split("v1", []models.TranscriptSegment{seg(0, 0, 60, long)}, Config{MaxChunkChars: 500, OverlapChars: 50})
	if len(chunks) != 3 {
		t.Fatalf("expected 3 force-split windows, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.CharLen > 500 {
			t.Fatalf("window %d exceeds max: %d", i, c.CharLen)
		}
		if c.StartSecs != 0 || c.EndSecs != 60 {
			t.Fatalf("window %d lost source timestamps: %+v", i, c)
		}
	}
	// Windows step by max-overlap, so adjacent windows share the overlap.
	if chunks[0].Text[450:] != chunks[1].Text[:50] {
		t.Fatal("force-split windows do not overlap")
	}
}

func TestSplitCarryAfterForceSplitRespectsMax(t *testing.T) {
	// An oversized segment leaves an overlap carry behind; a following segment
	// that nearly fills the chunk must not push carry + separator + segment
	// past the limit.
	segments := []models.TranscriptSegment{
		seg(0, 0, 30, strings.Repeat("a", 600)),
		seg(1, 30, 60, strings.Repeat("b", 460)),
		seg(2, 60, 65, strings.Repeat("c", 10)),
	}
	chunks := Split("v1", segments, Config{MaxChunkChars: 500, OverlapChars: 50})
	for _, c := range chunks {
		if c.CharLen > 500 {
			t.Fatalf("chunk %d has %d chars, exceeds max", c.ChunkIndex, c.CharLen)
		}
		if c.CharLen != len([]rune(c.Text)) {
			t.Fatalf("chunk %d char_len %d does not match text", c.ChunkIndex, c.CharLen)
		}
	}
	// The fitting 460-char segment must still land whole in a single chunk.
	whole := strings.Repeat("b", 460)
	found := false
	for _, c := range chunks {
		if strings.Contains(c.Text, whole) {
			found = true
		}
	}
	if !found {
		t.Fatal("fitting segment was split across chunks")
	}
}

func TestSplitNeverSplitsFittingSegment(t *testing.T) {
	exact := strings.Repeat("s", 500)
	chunks := Split("v1", []models.TranscriptSegment{seg(0, 0, 10, exact)}, Config{MaxChunkChars: 500, OverlapChars: 50})
	if len(chunks) != 1 || chunks[0].Text != exact {
		t.Fatalf("segment that fits exactly was split: %d chunks", len(chunks))
	}
}

func TestSplitSkipsEmptySegments(t *testing.T) {
	segments := []models.TranscriptSegment{
		seg(0, 0, 2, "  "),
		seg(1, 2, 4, "speech"),
		seg(2, 4, 6, "\x00"),
	}
	chunks := Split("v1", segments, Config{MaxChunkChars: 100, OverlapChars: 10})
	if len(chunks) != 1 || chunks[0].Text != "speech" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
	if chunks[0].StartSecs != 2 {
		t.Fatalf("start time should come from first contributing segment, got %f", chunks[0].StartSecs)
	}
}

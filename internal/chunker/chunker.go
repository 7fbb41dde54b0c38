package chunker

import (
	"streamscribe/internal/models"
	"streamscribe/internal/util"
)

type Config struct {
	MaxChunkChars int
	OverlapChars  int
}

func (c Config) normalized() Config {
	if c.MaxChunkChars <= 0 {
		c.MaxChunkChars = 1200
	}
	if c.OverlapChars < 0 || c.OverlapChars >= c.MaxChunkChars {
		c.OverlapChars = 0
	}
	return c
}

// Split turns an ordered transcript into size-bounded chunks. Segments are
// accumulated greedily; when the next segment would overflow MaxChunkChars the
// chunk is closed and the trailing OverlapChars are carried into the next one.
// A segment is never split across chunks unless it alone exceeds MaxChunkChars,
// in which case it is force-split at rune boundaries. The function is pure:
// the same segments and config always yield identical chunks.
func Split(videoID string, segments []models.TranscriptSegment, cfg Config) []models.Chunk {
	cfg = cfg.normalized()
	b := &builder{videoID: videoID, max: cfg.MaxChunkChars, overlap: cfg.OverlapChars}
	for _, seg := range segments {
		b.addSegment(seg)
	}
	b.finish()
	return b.chunks
}

type builder struct {
	videoID string
	max     int
	overlap int

	chunks []models.Chunk
	cur    []rune
	start  float64
	end    float64
	// hasBody is true once cur holds text beyond the carried overlap prefix.
	hasBody bool
}

func (b *builder) addSegment(seg models.TranscriptSegment) {
	text := util.SanitizeText(seg.Text)
	if text == "" {
		return
	}
	r := []rune(text)
	if len(r) > b.max {
		b.forceSplit(seg, r)
		return
	}
	if b.hasBody && b.needed(len(r)) > b.max {
		b.flush()
	}
	b.fitCarry(len(r))
	if len(b.cur) > 0 {
		b.cur = append(b.cur, ' ')
	}
	b.cur = append(b.cur, r...)
	if !b.hasBody {
		b.start = seg.StartSecs
	}
	b.end = seg.EndSecs
	b.hasBody = true
}

func (b *builder) needed(segLen int) int {
	n := len(b.cur) + segLen
	if len(b.cur) > 0 {
		n++
	}
	return n
}

// flush closes the current chunk and seeds the next one with the trailing
// overlap. The carry is trimmed later by fitCarry, once the size of the
// segment joining it is known.
func (b *builder) flush() {
	if !b.hasBody {
		return
	}
	b.emit(b.cur, b.start, b.end)
	carry := tail(b.cur, b.overlap)
	b.cur = append([]rune(nil), carry...)
	b.start, b.end = 0, 0
	b.hasBody = false
}

// fitCarry trims a carried overlap prefix so carry, separator and the incoming
// segment together still fit in one chunk. Every carry passes through here
// before text is appended, whether it came from flush or from forceSplit.
func (b *builder) fitCarry(nextLen int) {
	if b.hasBody || len(b.cur) == 0 {
		return
	}
	limit := b.max - nextLen - 1
	if limit < 0 {
		limit = 0
	}
	if len(b.cur) > limit {
		b.cur = append([]rune(nil), tail(b.cur, limit)...)
	}
}

// forceSplit emits an oversized segment as a run of max-sized windows that
// themselves overlap by OverlapChars. Every window keeps the source segment's
// timestamps since sub-segment timing is unknown.
func (b *builder) forceSplit(seg models.TranscriptSegment, r []rune) {
	b.flush()
	step := b.max - b.overlap
	if step <= 0 {
		step = b.max
	}
	var last []rune
	for i := 0; ; i += step {
		end := i + b.max
		done := false
		if end >= len(r) {
			end = len(r)
			done = true
		}
		last = r[i:end]
		b.emit(last, seg.StartSecs, seg.EndSecs)
		if done {
			break
		}
	}
	carry := tail(last, b.overlap)
	b.cur = append([]rune(nil), carry...)
	b.start, b.end = 0, 0
	b.hasBody = false
}

func (b *builder) finish() {
	if b.hasBody {
		b.emit(b.cur, b.start, b.end)
	}
	b.cur = nil
}

func (b *builder) emit(text []rune, start, end float64) {
	b.chunks = append(b.chunks, models.Chunk{
		VideoID:    b.videoID,
		ChunkIndex: len(b.chunks),
		Text:       string(text),
		StartSecs:  start,
		EndSecs:    end,
		CharLen:    len(text),
	})
}

func tail(r []rune, n int) []rune {
	if n <= 0 || len(r) == 0 {
		return nil
	}
	if n >= len(r) {
		return r
	}
	return r[len(r)-n:]
}

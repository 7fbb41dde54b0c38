package models

import "time"

type VideoStatus string

const (
	StatusUploaded     VideoStatus = "uploaded"
	StatusResolving    VideoStatus = "resolving"
	StatusTranscribing VideoStatus = "transcribing"
	StatusChunking     VideoStatus = "chunking"
	StatusEmbedding    VideoStatus = "embedding"
	StatusIndexing     VideoStatus = "indexing"
	StatusReady        VideoStatus = "ready"
	StatusFailed       VideoStatus = "failed"
	StatusCancelled    VideoStatus = "cancelled"
)

var statusRank = map[VideoStatus]int{
	StatusUploaded:     0,
	StatusResolving:    1,
	StatusTranscribing: 2,
	StatusChunking:     3,
	StatusEmbedding:    4,
	StatusIndexing:     5,
	StatusReady:        6,
}

func (s VideoStatus) Valid() bool {
	if _, ok := statusRank[s]; ok {
		return true
	}
	return s == StatusFailed || s == StatusCancelled
}

func (s VideoStatus) Terminal() bool {
	return s == StatusReady || s == StatusFailed || s == StatusCancelled
}

// CanTransition enforces the forward-only status order. Failed and cancelled
// are reachable from any non-ready state, and a retried pipeline may move from
// a terminal failure back into any processing stage.
func CanTransition(from, to VideoStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if to == StatusFailed || to == StatusCancelled {
		return from != StatusReady
	}
	if from == StatusFailed || from == StatusCancelled {
		return to != StatusReady
	}
	fr, fok := statusRank[from]
	tr, tok := statusRank[to]
	if !fok || !tok {
		return false
	}
	return tr > fr
}

type Video struct {
	VideoID       string      `json:"video_id"`
	Title         string      `json:"title"`
	StorageRef    string      `json:"storage_ref"`
	DurationSecs  int         `json:"duration_secs"`
	SizeBytes     int64       `json:"size_bytes"`
	Status        VideoStatus `json:"status"`
	ErrorReason   string      `json:"error_reason,omitempty"`
	TranscribedAt *time.Time  `json:"transcribed_at,omitempty"`
	ChunkedAt     *time.Time  `json:"chunked_at,omitempty"`
	IndexedAt     *time.Time  `json:"indexed_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type TranscriptSegment struct {
	VideoID   string  `json:"video_id"`
	Seq       int     `json:"seq"`
	StartSecs float64 `json:"start_secs"`
	EndSecs   float64 `json:"end_secs"`
	Text      string  `json:"text"`
}

type Chunk struct {
	VideoID        string    `json:"video_id"`
	ChunkIndex     int       `json:"chunk_index"`
	Text           string    `json:"text"`
	StartSecs      float64   `json:"start_secs"`
	EndSecs        float64   `json:"end_secs"`
	CharLen        int       `json:"char_len"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type SearchResult struct {
	VideoID    string  `json:"video_id"`
	VideoTitle string  `json:"video_title"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	StartSecs  float64 `json:"start_secs"`
	EndSecs    float64 `json:"end_secs"`
	Score      float64 `json:"score"`
}

// PipelineState is the durable view the orchestrator resumes from: one
// completion fact per stage plus the counts needed for index verification.
type PipelineState struct {
	Status       VideoStatus `json:"status"`
	Transcribed  bool        `json:"transcribed"`
	Chunked      bool        `json:"chunked"`
	Indexed      bool        `json:"indexed"`
	SegmentCount int         `json:"segment_count"`
	ChunkCount   int         `json:"chunk_count"`
	IndexedCount int         `json:"indexed_count"`
}

type StatusCount struct {
	Status        VideoStatus `json:"status"`
	Count         int         `json:"count"`
	TotalDuration int         `json:"total_duration_secs"`
}

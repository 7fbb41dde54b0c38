package activities

import (
	"streamscribe/internal/models"
	"streamscribe/internal/vector"
)

type GetPipelineStateInput struct {
	VideoID string
}

type GetPipelineStateOutput struct {
	State models.PipelineState
}

type UpdateVideoStatusInput struct {
	VideoID     string
	Status      models.VideoStatus
	ErrorReason string
}

type ResolveMediaInput struct {
	VideoID string
}

type ResolveMediaOutput struct {
	MediaPath string
	SizeBytes int64
}

type TranscribeVideoInput struct {
	VideoID       string
	MediaPath     string
	Language      string
	ProviderIndex int
}

type TranscribeVideoOutput struct {
	SegmentCount int
	ProviderName string
	Model        string
}

type ChunkTranscriptInput struct {
	VideoID       string
	MaxChunkChars int
	OverlapChars  int
}

type ChunkTranscriptOutput struct {
	ChunkCount int
}

type EmbedChunksInput struct {
	VideoID       string
	ProviderIndex int
	// Indexes restricts the run to an explicit chunk subset; empty means
	// every chunk still missing a vector for the configured model.
	Indexes []int
}

type FailedChunk struct {
	ChunkIndex int
	Reason     string
}

type EmbedChunksOutput struct {
	Vectors      []vector.ChunkVector
	Failed       []FailedChunk
	ProviderName string
	Model        string
}

type IndexVectorsInput struct {
	VideoID string
	Vectors []vector.ChunkVector
	Model   string
}

type IndexVectorsOutput struct {
	Indexed int
}

type VerifyIndexInput struct {
	VideoID string
}

type VerifyIndexOutput struct {
	ChunkCount   int
	IndexedCount int
}

type PurgeVideoDataInput struct {
	VideoID string
	// KeepVideo leaves the video row and its stored media in place and only
	// clears derived data, which is what a reset-and-reprocess needs.
	KeepVideo bool
}

type WriteTranscriptArtifactInput struct {
	VideoID string
}

type WriteTranscriptArtifactOutput struct {
	TranscriptPath string
	SegmentsPath   string
}

type LogModelCallInput struct {
	Operation    string
	VideoID      string
	ProviderName string
	Model        string
	Status       string
	ErrorType    string
}

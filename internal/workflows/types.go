package workflows

// VideoPipelineInput carries everything the pipeline needs up front. Tuning
// knobs travel in the input rather than being read inside the workflow so a
// replay sees the same values the original run did.
type VideoPipelineInput struct {
	VideoID        string
	Language       string
	Reset          bool
	MaxChunkChars  int
	OverlapChars   int
	EmbedMaxPasses int
}

// PipelineProgress is exposed through the pipeline-progress query.
type PipelineProgress struct {
	Stage        string
	SegmentCount int
	ChunkCount   int
	IndexedCount int
	FailedChunks int
}

const ProgressQuery = "pipeline-progress"

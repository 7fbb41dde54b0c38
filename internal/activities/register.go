package activities

import "go.temporal.io/sdk/worker"

// Register attaches every pipeline activity to the worker.
func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.GetPipelineStateActivity)
	w.RegisterActivity(a.UpdateVideoStatusActivity)
	w.RegisterActivity(a.ResolveMediaActivity)
	w.RegisterActivity(a.TranscribeVideoActivity)
	w.RegisterActivity(a.ChunkTranscriptActivity)
	w.RegisterActivity(a.EmbedChunksActivity)
	w.RegisterActivity(a.IndexVectorsActivity)
	w.RegisterActivity(a.VerifyIndexActivity)
	w.RegisterActivity(a.PurgeVideoDataActivity)
	w.RegisterActivity(a.WriteTranscriptArtifactActivity)
	w.RegisterActivity(a.LogModelCallActivity)
}

package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"streamscribe/internal/activities"
	"streamscribe/internal/models"
)

const (
	defaultEmbedMaxPasses = 3
	embedRetryBackoff     = 30 * time.Second
	maxFailureReasonLen   = 500
)

// VideoPipelineWorkflow drives one video from upload to searchable: resolve
// media, transcribe, chunk, embed, index, verify. The workflow ID is derived
// from the video ID, so Temporal's duplicate-start rejection doubles as the
// per-video lock. Completed stages are skipped on re-runs by consulting the
// persisted stage marks, not workflow history.
func VideoPipelineWorkflow(ctx workflow.Context, input VideoPipelineInput) (string, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Video pipeline started", "videoID", input.VideoID, "reset", input.Reset)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    2 * time.Minute,
			MaximumAttempts:    4,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	progress := PipelineProgress{Stage: "starting"}
	if err := workflow.SetQueryHandler(ctx, ProgressQuery, func() (PipelineProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	var a *activities.Activities

	if input.Reset {
		progress.Stage = "purging"
		err := workflow.ExecuteActivity(ctx, a.PurgeVideoDataActivity,
			activities.PurgeVideoDataInput{VideoID: input.VideoID, KeepVideo: true}).Get(ctx, nil)
		if err != nil {
			return failPipeline(ctx, input.VideoID, fmt.Sprintf("purge before reprocess: %v", err), err)
		}
	}

	var stateOut activities.GetPipelineStateOutput
	if err := workflow.ExecuteActivity(ctx, a.GetPipelineStateActivity,
		activities.GetPipelineStateInput{VideoID: input.VideoID}).Get(ctx, &stateOut); err != nil {
		return failPipeline(ctx, input.VideoID, fmt.Sprintf("load pipeline state: %v", err), err)
	}
	state := stateOut.State
	progress.SegmentCount = state.SegmentCount
	progress.ChunkCount = state.ChunkCount
	progress.IndexedCount = state.IndexedCount

	if state.Status == models.StatusReady && state.Indexed {
		logger.Info("Video already indexed, nothing to do", "videoID", input.VideoID)
		return "ready", nil
	}

	if !state.Transcribed {
		progress.Stage = "resolving"
		if err := setStatus(ctx, input.VideoID, models.StatusResolving, ""); err != nil {
			return failPipeline(ctx, input.VideoID, fmt.Sprintf("enter resolving: %v", err), err)
		}
		var resolved activities.ResolveMediaOutput
		if err := workflow.ExecuteActivity(ctx, a.ResolveMediaActivity,
			activities.ResolveMediaInput{VideoID: input.VideoID}).Get(ctx, &resolved); err != nil {
			return failPipeline(ctx, input.VideoID, fmt.Sprintf("resolve media: %v", err), err)
		}

		progress.Stage = "transcribing"
		if err := setStatus(ctx, input.VideoID, models.StatusTranscribing, ""); err != nil {
			return failPipeline(ctx, input.VideoID, fmt.Sprintf("enter transcribing: %v", err), err)
		}
		var transcribed activities.TranscribeVideoOutput
		err := workflow.ExecuteActivity(ctx, a.TranscribeVideoActivity, activities.TranscribeVideoInput{
			VideoID:   input.VideoID,
			MediaPath: resolved.MediaPath,
			Language:  input.Language,
		}).Get(ctx, &transcribed)
		logModelCall(ctx, "transcribe", input.VideoID, transcribed.ProviderName, transcribed.Model, err)
		if err != nil {
			return failPipeline(ctx, input.VideoID, fmt.Sprintf("transcribe: %v", err), err)
		}
		progress.SegmentCount = transcribed.SegmentCount

		if err := workflow.ExecuteActivity(ctx, a.WriteTranscriptArtifactActivity,
			activities.WriteTranscriptArtifactInput{VideoID: input.VideoID}).Get(ctx, nil); err != nil {
			logger.Warn("Transcript artifact write failed", "videoID", input.VideoID, "error", err)
		}
	} else {
		logger.Info("Skipping transcription, already done", "videoID", input.VideoID)
	}

	if !state.Chunked {
		progress.Stage = "chunking"
		if err := setStatus(ctx, input.VideoID, models.StatusChunking, ""); err != nil {
			return failPipeline(ctx, input.VideoID, fmt.Sprintf("enter chunking: %v", err), err)
		}
		var chunked activities.ChunkTranscriptOutput
		if err := workflow.ExecuteActivity(ctx, a.ChunkTranscriptActivity, activities.ChunkTranscriptInput{
			VideoID:       input.VideoID,
			MaxChunkChars: input.MaxChunkChars,
			OverlapChars:  input.OverlapChars,
		}).Get(ctx, &chunked); err != nil {
			return failPipeline(ctx, input.VideoID, fmt.Sprintf("chunk transcript: %v", err), err)
		}
		progress.ChunkCount = chunked.ChunkCount
	} else {
		logger.Info("Skipping chunking, already done", "videoID", input.VideoID)
	}

	if !state.Indexed {
		progress.Stage = "embedding"
		if err := setStatus(ctx, input.VideoID, models.StatusEmbedding, ""); err != nil {
			return failPipeline(ctx, input.VideoID, fmt.Sprintf("enter embedding: %v", err), err)
		}
		maxPasses := input.EmbedMaxPasses
		if maxPasses <= 0 {
			maxPasses = defaultEmbedMaxPasses
		}

		var pending []int
		for pass := 1; ; pass++ {
			var embedded activities.EmbedChunksOutput
			err := workflow.ExecuteActivity(ctx, a.EmbedChunksActivity, activities.EmbedChunksInput{
				VideoID: input.VideoID,
				Indexes: pending,
			}).Get(ctx, &embedded)
			logModelCall(ctx, "embed_chunks", input.VideoID, embedded.ProviderName, embedded.Model, err)
			if err != nil {
				return failPipeline(ctx, input.VideoID, fmt.Sprintf("embed chunks: %v", err), err)
			}

			if len(embedded.Vectors) > 0 {
				var indexed activities.IndexVectorsOutput
				if err := workflow.ExecuteActivity(ctx, a.IndexVectorsActivity, activities.IndexVectorsInput{
					VideoID: input.VideoID,
					Vectors: embedded.Vectors,
					Model:   embedded.Model,
				}).Get(ctx, &indexed); err != nil {
					return failPipeline(ctx, input.VideoID, fmt.Sprintf("index vectors: %v", err), err)
				}
				progress.IndexedCount += indexed.Indexed
			}

			progress.FailedChunks = len(embedded.Failed)
			if len(embedded.Failed) == 0 {
				break
			}
			if pass >= maxPasses {
				return failPipeline(ctx, input.VideoID,
					fmt.Sprintf("%d chunks still unembedded after %d passes: %s",
						len(embedded.Failed), pass, embedded.Failed[0].Reason), nil)
			}
			logger.Warn("Retrying failed embed subset", "videoID", input.VideoID,
				"failed", len(embedded.Failed), "pass", pass)
			pending = pending[:0]
			for _, f := range embedded.Failed {
				pending = append(pending, f.ChunkIndex)
			}
			if err := workflow.Sleep(ctx, embedRetryBackoff); err != nil {
				return failPipeline(ctx, input.VideoID, "cancelled during embed backoff", err)
			}
		}
	} else {
		logger.Info("Skipping embedding, already done", "videoID", input.VideoID)
	}

	progress.Stage = "indexing"
	if err := setStatus(ctx, input.VideoID, models.StatusIndexing, ""); err != nil {
		return failPipeline(ctx, input.VideoID, fmt.Sprintf("enter indexing: %v", err), err)
	}
	var verified activities.VerifyIndexOutput
	if err := workflow.ExecuteActivity(ctx, a.VerifyIndexActivity,
		activities.VerifyIndexInput{VideoID: input.VideoID}).Get(ctx, &verified); err != nil {
		return failPipeline(ctx, input.VideoID, fmt.Sprintf("verify index: %v", err), err)
	}
	progress.ChunkCount = verified.ChunkCount
	progress.IndexedCount = verified.IndexedCount

	if err := setStatus(ctx, input.VideoID, models.StatusReady, ""); err != nil {
		return failPipeline(ctx, input.VideoID, fmt.Sprintf("enter ready: %v", err), err)
	}
	progress.Stage = "ready"
	logger.Info("Video pipeline completed", "videoID", input.VideoID,
		"chunks", verified.ChunkCount, "indexed", verified.IndexedCount)
	return "ready", nil
}

func setStatus(ctx workflow.Context, videoID string, status models.VideoStatus, reason string) error {
	var a *activities.Activities
	return workflow.ExecuteActivity(ctx, a.UpdateVideoStatusActivity, activities.UpdateVideoStatusInput{
		VideoID:     videoID,
		Status:      status,
		ErrorReason: reason,
	}).Get(ctx, nil)
}

// failPipeline records the terminal status on a context that survives
// cancellation, so a cancelled run still lands on cancelled instead of being
// stuck in a mid-pipeline status.
func failPipeline(ctx workflow.Context, videoID, reason string, cause error) (string, error) {
	logger := workflow.GetLogger(ctx)
	dctx, _ := workflow.NewDisconnectedContext(ctx)

	status := models.StatusFailed
	result := "failed"
	if temporal.IsCanceledError(cause) || ctx.Err() != nil {
		status = models.StatusCancelled
		result = "cancelled"
	}
	if len(reason) > maxFailureReasonLen {
		reason = reason[:maxFailureReasonLen]
	}
	if err := setStatus(dctx, videoID, status, reason); err != nil {
		logger.Error("Failed to record terminal status", "videoID", videoID, "status", status, "error", err)
	}
	logger.Error("Video pipeline stopped", "videoID", videoID, "status", status, "reason", reason)
	return result, nil
}

func logModelCall(ctx workflow.Context, operation, videoID, provider, model string, callErr error) {
	status := "success"
	errType := ""
	if callErr != nil {
		status = "error"
		errType = "unknown"
	}
	var a *activities.Activities
	err := workflow.ExecuteActivity(ctx, a.LogModelCallActivity, activities.LogModelCallInput{
		Operation:    operation,
		VideoID:      videoID,
		ProviderName: provider,
		Model:        model,
		Status:       status,
		ErrorType:    errType,
	}).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Warn("Model call audit failed", "videoID", videoID, "operation", operation, "error", err)
	}
}

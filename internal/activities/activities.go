package activities

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"streamscribe/internal/artifacts"
	"streamscribe/internal/chunker"
	"streamscribe/internal/config"
	"streamscribe/internal/media"
	"streamscribe/internal/models"
	"streamscribe/internal/providers"
	"streamscribe/internal/storage"
	"streamscribe/internal/util"
	"streamscribe/internal/vector"
)

// Activities bundles every pipeline side effect behind one dependency set so
// the worker wires them once and workflows stay pure.
type Activities struct {
	cfg           config.Config
	videoRepo     *storage.VideoRepo
	segmentRepo   *storage.SegmentRepo
	chunkRepo     *storage.ChunkRepo
	modelCallRepo *storage.ModelCallRepo
	writer        *vector.Writer
	resolver      media.Resolver
	providers     *providers.Manager
}

func New(cfg config.Config, db *storage.DB, resolver media.Resolver, mgr *providers.Manager) *Activities {
	return &Activities{
		cfg:           cfg,
		videoRepo:     storage.NewVideoRepo(db),
		segmentRepo:   storage.NewSegmentRepo(db),
		chunkRepo:     storage.NewChunkRepo(db),
		modelCallRepo: storage.NewModelCallRepo(db),
		writer:        vector.NewWriter(db),
		resolver:      resolver,
		providers:     mgr,
	}
}

func (a *Activities) GetPipelineStateActivity(ctx context.Context, in GetPipelineStateInput) (GetPipelineStateOutput, error) {
	v, err := a.videoRepo.Get(ctx, in.VideoID)
	if err != nil {
		if errors.Is(err, util.ErrVideoNotFound) {
			return GetPipelineStateOutput{}, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("video %s not found", in.VideoID), "permanent_input", err)
		}
		return GetPipelineStateOutput{}, err
	}
	segCount, err := a.segmentRepo.CountByVideo(ctx, in.VideoID)
	if err != nil {
		return GetPipelineStateOutput{}, err
	}
	chunkCount, err := a.chunkRepo.CountByVideo(ctx, in.VideoID)
	if err != nil {
		return GetPipelineStateOutput{}, err
	}
	indexedCount, err := a.writer.CountIndexed(ctx, in.VideoID, a.cfg.EmbedModel)
	if err != nil {
		return GetPipelineStateOutput{}, err
	}
	return GetPipelineStateOutput{State: models.PipelineState{
		Status:       v.Status,
		Transcribed:  v.TranscribedAt != nil,
		Chunked:      v.ChunkedAt != nil,
		Indexed:      v.IndexedAt != nil,
		SegmentCount: segCount,
		ChunkCount:   chunkCount,
		IndexedCount: indexedCount,
	}}, nil
}

// UpdateVideoStatusActivity moves a video along the status machine. Illegal
// transitions fail without retry because retrying cannot make them legal.
func (a *Activities) UpdateVideoStatusActivity(ctx context.Context, in UpdateVideoStatusInput) error {
	v, err := a.videoRepo.Get(ctx, in.VideoID)
	if err != nil {
		return err
	}
	if v.Status == in.Status {
		return nil
	}
	if !models.CanTransition(v.Status, in.Status) {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("illegal status transition %s -> %s for video %s", v.Status, in.Status, in.VideoID),
			"permanent", nil)
	}
	return a.videoRepo.UpdateStatus(ctx, in.VideoID, in.Status, in.ErrorReason)
}

// ResolveMediaActivity materializes the stored media as a local scratch file
// that the transcription provider can read.
func (a *Activities) ResolveMediaActivity(ctx context.Context, in ResolveMediaInput) (ResolveMediaOutput, error) {
	logger := activity.GetLogger(ctx)
	v, err := a.videoRepo.Get(ctx, in.VideoID)
	if err != nil {
		return ResolveMediaOutput{}, err
	}
	if a.cfg.MaxVideoSeconds > 0 && v.DurationSecs > a.cfg.MaxVideoSeconds {
		return ResolveMediaOutput{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("video duration %ds exceeds ceiling %ds", v.DurationSecs, a.cfg.MaxVideoSeconds),
			"permanent_input", util.ErrDurationExceeded)
	}
	if !media.AllowedExtension(v.StorageRef) {
		return ResolveMediaOutput{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("unsupported media reference %q", v.StorageRef),
			"permanent_input", util.ErrUnsupportedMedia)
	}

	rc, err := a.resolver.Resolve(ctx, v.StorageRef)
	if err != nil {
		return ResolveMediaOutput{}, fmt.Errorf("resolve media for video %s: %w", in.VideoID, err)
	}
	defer rc.Close()

	scratchDir := filepath.Join(a.cfg.MediaRoot, "scratch")
	if err := util.EnsureDir(scratchDir); err != nil {
		return ResolveMediaOutput{}, err
	}
	path := filepath.Join(scratchDir, in.VideoID+strings.ToLower(filepath.Ext(v.StorageRef)))
	size, err := copyToFile(path, rc)
	if err != nil {
		return ResolveMediaOutput{}, fmt.Errorf("stage media for video %s: %w", in.VideoID, err)
	}
	logger.Info("Resolved media", "videoID", in.VideoID, "path", path, "bytes", size)
	return ResolveMediaOutput{MediaPath: path, SizeBytes: size}, nil
}

func (a *Activities) TranscribeVideoActivity(ctx context.Context, in TranscribeVideoInput) (TranscribeVideoOutput, error) {
	logger := activity.GetLogger(ctx)
	tr, ref := a.providers.TranscriberByIndex(in.ProviderIndex)
	segs, info, err := tr.Transcribe(ctx, providers.TranscribeRequest{
		Operation: "transcribe",
		MediaPath: in.MediaPath,
		Language:  in.Language,
	})
	if err != nil {
		errType := providers.ClassifyError(err)
		logger.Warn("Transcription failed", "videoID", in.VideoID, "provider", ref.Name, "errorType", errType)
		if !providers.Retryable(errType) {
			return TranscribeVideoOutput{}, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("transcribe video %s: %v", in.VideoID, err), string(errType), err)
		}
		return TranscribeVideoOutput{}, fmt.Errorf("transcribe video %s: %w", in.VideoID, err)
	}

	out := make([]models.TranscriptSegment, 0, len(segs))
	for _, s := range segs {
		text := util.SanitizeText(s.Text)
		if text == "" {
			continue
		}
		out = append(out, models.TranscriptSegment{
			VideoID:   in.VideoID,
			Seq:       len(out),
			StartSecs: s.Start,
			EndSecs:   s.End,
			Text:      text,
		})
	}
	if transcriptExceedsCeiling(out, a.cfg.MaxVideoSeconds) {
		last := out[len(out)-1]
		return TranscribeVideoOutput{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("video %s runs %.0fs, exceeds ceiling %ds", in.VideoID, last.EndSecs, a.cfg.MaxVideoSeconds),
			"permanent_input", util.ErrDurationExceeded)
	}
	if err := a.segmentRepo.Replace(ctx, in.VideoID, out); err != nil {
		return TranscribeVideoOutput{}, err
	}
	if len(out) > 0 {
		last := out[len(out)-1]
		if err := a.videoRepo.SetDuration(ctx, in.VideoID, int(math.Ceil(last.EndSecs))); err != nil {
			return TranscribeVideoOutput{}, err
		}
	}
	if err := a.videoRepo.MarkTranscribed(ctx, in.VideoID); err != nil {
		return TranscribeVideoOutput{}, err
	}
	logger.Info("Transcribed video", "videoID", in.VideoID, "segments", len(out), "model", info.Model)
	return TranscribeVideoOutput{SegmentCount: len(out), ProviderName: info.Name, Model: info.Model}, nil
}

// transcriptExceedsCeiling reports whether the provider-reported timeline runs
// past the duration ceiling. Stored durations are not trustworthy before
// transcription (uploads carry no probed duration), so the bound is enforced
// against the transcript itself.
func transcriptExceedsCeiling(segments []models.TranscriptSegment, maxSeconds int) bool {
	if maxSeconds <= 0 || len(segments) == 0 {
		return false
	}
	return segments[len(segments)-1].EndSecs > float64(maxSeconds)
}

func (a *Activities) ChunkTranscriptActivity(ctx context.Context, in ChunkTranscriptInput) (ChunkTranscriptOutput, error) {
	segs, err := a.segmentRepo.ListByVideo(ctx, in.VideoID)
	if err != nil {
		return ChunkTranscriptOutput{}, err
	}
	chunks := chunker.Split(in.VideoID, segs, chunker.Config{
		MaxChunkChars: in.MaxChunkChars,
		OverlapChars:  in.OverlapChars,
	})
	if err := a.chunkRepo.Replace(ctx, in.VideoID, chunks); err != nil {
		return ChunkTranscriptOutput{}, err
	}
	if err := a.videoRepo.MarkChunked(ctx, in.VideoID); err != nil {
		return ChunkTranscriptOutput{}, err
	}
	return ChunkTranscriptOutput{ChunkCount: len(chunks)}, nil
}

// EmbedChunksActivity embeds pending chunks in batches. A failing batch marks
// its chunks failed and the rest continue, so one bad batch does not discard
// the vectors already produced.
func (a *Activities) EmbedChunksActivity(ctx context.Context, in EmbedChunksInput) (EmbedChunksOutput, error) {
	logger := activity.GetLogger(ctx)
	chunks, err := a.chunkRepo.ListUnembedded(ctx, in.VideoID, a.cfg.EmbedModel, in.Indexes)
	if err != nil {
		return EmbedChunksOutput{}, err
	}
	if len(chunks) == 0 {
		return EmbedChunksOutput{Model: a.cfg.EmbedModel}, nil
	}

	provider, ref := a.providers.EmbedderByIndex(in.ProviderIndex)
	batchSize := a.cfg.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	out := EmbedChunksOutput{Model: a.cfg.EmbedModel}
	var firstErrType providers.ErrorType
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, info, err := provider.Embed(ctx, providers.EmbedRequest{
			Operation: "embed_chunks",
			Inputs:    texts,
			Dimension: a.cfg.EmbedDim,
		})
		if err == nil && len(vectors) != len(texts) {
			err = fmt.Errorf("provider returned %d vectors for %d inputs", len(vectors), len(texts))
		}
		if err != nil {
			errType := providers.ClassifyError(err)
			if firstErrType == "" {
				firstErrType = errType
			}
			logger.Warn("Embed batch failed", "videoID", in.VideoID, "provider", ref.Name,
				"batchStart", batch[0].ChunkIndex, "errorType", errType)
			for _, c := range batch {
				out.Failed = append(out.Failed, FailedChunk{ChunkIndex: c.ChunkIndex, Reason: err.Error()})
			}
			continue
		}

		out.ProviderName, out.Model = info.Name, info.Model
		for i, vec := range vectors {
			out.Vectors = append(out.Vectors, vector.ChunkVector{ChunkIndex: batch[i].ChunkIndex, Values: vec})
		}
		activity.RecordHeartbeat(ctx, end)
	}

	if len(out.Vectors) == 0 && len(out.Failed) > 0 {
		msg := fmt.Sprintf("all %d embed batches failed for video %s: %s",
			(len(chunks)+batchSize-1)/batchSize, in.VideoID, out.Failed[0].Reason)
		if !providers.Retryable(firstErrType) {
			return EmbedChunksOutput{}, temporal.NewNonRetryableApplicationError(msg, string(firstErrType), nil)
		}
		return EmbedChunksOutput{}, fmt.Errorf("%s", msg)
	}
	return out, nil
}

func (a *Activities) IndexVectorsActivity(ctx context.Context, in IndexVectorsInput) (IndexVectorsOutput, error) {
	if err := a.writer.UpsertBatch(ctx, in.VideoID, in.Vectors, in.Model); err != nil {
		return IndexVectorsOutput{}, err
	}
	return IndexVectorsOutput{Indexed: len(in.Vectors)}, nil
}

// VerifyIndexActivity gates the ready status: every chunk must carry a vector
// under the configured model before the video becomes searchable.
func (a *Activities) VerifyIndexActivity(ctx context.Context, in VerifyIndexInput) (VerifyIndexOutput, error) {
	chunkCount, err := a.chunkRepo.CountByVideo(ctx, in.VideoID)
	if err != nil {
		return VerifyIndexOutput{}, err
	}
	indexed, err := a.writer.CountIndexed(ctx, in.VideoID, a.cfg.EmbedModel)
	if err != nil {
		return VerifyIndexOutput{}, err
	}
	out := VerifyIndexOutput{ChunkCount: chunkCount, IndexedCount: indexed}
	if indexed != chunkCount {
		return out, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("video %s has %d/%d chunks indexed under model %s",
				in.VideoID, indexed, chunkCount, a.cfg.EmbedModel),
			"consistency", util.ErrIndexIncomplete)
	}
	if err := a.videoRepo.MarkIndexed(ctx, in.VideoID); err != nil {
		return out, err
	}
	return out, nil
}

// PurgeVideoDataActivity removes derived data in reverse dependency order:
// vectors before chunk rows, chunks before segments. A crash mid-purge then
// leaves no vector pointing at a missing chunk.
func (a *Activities) PurgeVideoDataActivity(ctx context.Context, in PurgeVideoDataInput) error {
	if err := a.writer.DeleteByVideo(ctx, in.VideoID); err != nil {
		return err
	}
	if err := a.chunkRepo.DeleteByVideo(ctx, in.VideoID); err != nil {
		return err
	}
	if err := a.segmentRepo.DeleteByVideo(ctx, in.VideoID); err != nil {
		return err
	}
	if in.KeepVideo {
		return a.videoRepo.ClearStageMarks(ctx, in.VideoID)
	}
	return a.videoRepo.Delete(ctx, in.VideoID)
}

// WriteTranscriptArtifactActivity exports the transcript to the data
// directory so it outlives the database rows.
func (a *Activities) WriteTranscriptArtifactActivity(ctx context.Context, in WriteTranscriptArtifactInput) (WriteTranscriptArtifactOutput, error) {
	segs, err := a.segmentRepo.ListByVideo(ctx, in.VideoID)
	if err != nil {
		return WriteTranscriptArtifactOutput{}, err
	}
	dir := filepath.Join(a.cfg.DataOutRoot, "videos", in.VideoID)
	summaryPath, segmentsPath, err := artifacts.WriteTranscript(dir, in.VideoID, segs)
	if err != nil {
		return WriteTranscriptArtifactOutput{}, err
	}
	return WriteTranscriptArtifactOutput{TranscriptPath: summaryPath, SegmentsPath: segmentsPath}, nil
}

func (a *Activities) LogModelCallActivity(ctx context.Context, in LogModelCallInput) error {
	return a.modelCallRepo.Insert(ctx, storage.ModelCallRecord{
		Operation:    in.Operation,
		VideoID:      in.VideoID,
		ProviderName: in.ProviderName,
		Model:        in.Model,
		Status:       in.Status,
		ErrorType:    in.ErrorType,
	})
}

func copyToFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return size, nil
}

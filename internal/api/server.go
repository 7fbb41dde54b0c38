package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"streamscribe/internal/config"
	"streamscribe/internal/media"
	"streamscribe/internal/models"
	"streamscribe/internal/providers"
	"streamscribe/internal/search"
	"streamscribe/internal/storage"
	"streamscribe/internal/util"
	"streamscribe/internal/vector"
	"streamscribe/internal/workflows"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	tclient "go.temporal.io/sdk/client"
)

type Server struct {
	cfg         config.Config
	db          *storage.DB
	videoRepo   *storage.VideoRepo
	segmentRepo *storage.SegmentRepo
	chunkRepo   *storage.ChunkRepo
	writer      *vector.Writer
	store       *media.LocalStore
	search      *search.Service
	temporal    tclient.Client
}

func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		panic(err)
	}
	store, err := media.NewLocalStore(cfg.MediaRoot)
	if err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}
	return &Server{
		cfg:         cfg,
		db:          db,
		videoRepo:   storage.NewVideoRepo(db),
		segmentRepo: storage.NewSegmentRepo(db),
		chunkRepo:   storage.NewChunkRepo(db),
		writer:      vector.NewWriter(db),
		store:       store,
		search:      search.NewService(cfg, vector.NewSearcher(db.Pool), pm.FirstEmbedder()),
		temporal:    tc,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Route("/videos", func(r chi.Router) {
		r.Post("/", s.handleUploadVideo)
		r.Get("/", s.handleListVideos)
		r.Route("/{videoID}", func(r chi.Router) {
			r.Get("/", s.handleGetVideo)
			r.Delete("/", s.handleDeleteVideo)
			r.Post("/retry", s.handleRetryVideo)
			r.Get("/progress", s.handleVideoProgress)
		})
	})
	r.Get("/search", s.handleSearch)
	r.Get("/stats", s.handleStats)
	return withCORS(r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleUploadVideo accepts either a multipart upload (field "file") or a
// JSON body referencing media already present in the store. Either way the
// pipeline workflow is started immediately.
func (s *Server) handleUploadVideo(w http.ResponseWriter, r *http.Request) {
	var (
		title      string
		storageRef string
		sizeBytes  int64
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Title      string `json:"title"`
			StorageRef string `json:"storage_ref"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		req.StorageRef = strings.TrimSpace(req.StorageRef)
		if req.StorageRef == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("storage_ref is required"))
			return
		}
		if !media.AllowedExtension(req.StorageRef) {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: %s", util.ErrUnsupportedMedia, req.StorageRef))
			return
		}
		if _, err := s.store.Path(req.StorageRef); err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		title = strings.TrimSpace(req.Title)
		storageRef = req.StorageRef
	} else {
		if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("no file provided"))
			return
		}
		defer file.Close()
		if s.cfg.MaxUploadBytes > 0 && header.Size > s.cfg.MaxUploadBytes {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("upload exceeds %d bytes", s.cfg.MaxUploadBytes))
			return
		}
		storageRef, sizeBytes, err = s.store.Save(file, header.Filename)
		if err != nil {
			if errors.Is(err, util.ErrUnsupportedMedia) {
				writeErr(w, http.StatusBadRequest, err)
				return
			}
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		title = strings.TrimSpace(r.FormValue("title"))
		if title == "" {
			title = header.Filename
		}
	}
	if title == "" {
		title = storageRef
	}

	videoID := uuid.NewString()
	if err := s.videoRepo.Create(r.Context(), models.Video{
		VideoID:    videoID,
		Title:      title,
		StorageRef: storageRef,
		SizeBytes:  sizeBytes,
		Status:     models.StatusUploaded,
	}); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	we, err := s.startPipeline(r.Context(), videoID, false)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"video_id":    videoID,
		"title":       title,
		"storage_ref": storageRef,
		"workflow_id": we.GetID(),
		"run_id":      we.GetRunID(),
	})
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && !models.VideoStatus(status).Valid() {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("unknown status %q", status))
		return
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	videos, err := s.videoRepo.List(r.Context(), models.VideoStatus(status), limit, offset)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"videos": videos, "limit": limit, "offset": offset})
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	v, err := s.videoRepo.Get(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, util.ErrVideoNotFound) {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	segments, err := s.segmentRepo.CountByVideo(r.Context(), videoID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	chunks, err := s.chunkRepo.CountByVideo(r.Context(), videoID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	indexed, err := s.writer.CountIndexed(r.Context(), videoID, s.cfg.EmbedModel)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"video":         v,
		"segment_count": segments,
		"chunk_count":   chunks,
		"indexed_count": indexed,
	})
}

// handleRetryVideo restarts the pipeline for a failed or cancelled video.
// With ?reset=true all derived data is purged first, which is also the path
// for re-embedding after an embedding model change.
func (s *Server) handleRetryVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	reset := r.URL.Query().Get("reset") == "true"

	v, err := s.videoRepo.Get(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, util.ErrVideoNotFound) {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if v.Status == models.StatusReady && !reset {
		writeErr(w, http.StatusConflict, fmt.Errorf("video is already indexed; use reset=true to reprocess"))
		return
	}

	we, err := s.startPipeline(r.Context(), videoID, reset)
	if err != nil {
		var already *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &already) {
			writeErr(w, http.StatusConflict, fmt.Errorf("pipeline already running for video %s", videoID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"video_id":    videoID,
		"reset":       reset,
		"workflow_id": we.GetID(),
		"run_id":      we.GetRunID(),
	})
}

// handleDeleteVideo removes the video and every trace of it from the index.
// Vectors go first so a failure partway through never leaves a searchable
// chunk behind. The media blob is content-addressed and possibly shared with
// other videos, so it stays in the store.
func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if _, err := s.videoRepo.Get(r.Context(), videoID); err != nil {
		if errors.Is(err, util.ErrVideoNotFound) {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	if err := s.temporal.CancelWorkflow(r.Context(), pipelineWorkflowID(videoID), ""); err != nil {
		var notFound *serviceerror.NotFound
		if !errors.As(err, &notFound) {
			writeErr(w, http.StatusInternalServerError, fmt.Errorf("cancel pipeline: %w", err))
			return
		}
	}

	if err := s.writer.DeleteByVideo(r.Context(), videoID); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.chunkRepo.DeleteByVideo(r.Context(), videoID); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.segmentRepo.DeleteByVideo(r.Context(), videoID); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.videoRepo.Delete(r.Context(), videoID); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": videoID})
}

func (s *Server) handleVideoProgress(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")

	resp, err := s.temporal.QueryWorkflow(r.Context(), pipelineWorkflowID(videoID), "", workflows.ProgressQuery)
	if err == nil {
		var prog workflows.PipelineProgress
		if err := resp.Get(&prog); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, prog)
		return
	}

	// No live workflow to query; derive progress from persisted state.
	v, vErr := s.videoRepo.Get(r.Context(), videoID)
	if vErr != nil {
		if errors.Is(vErr, util.ErrVideoNotFound) {
			writeErr(w, http.StatusNotFound, vErr)
			return
		}
		writeErr(w, http.StatusInternalServerError, vErr)
		return
	}
	segments, _ := s.segmentRepo.CountByVideo(r.Context(), videoID)
	chunks, _ := s.chunkRepo.CountByVideo(r.Context(), videoID)
	indexed, _ := s.writer.CountIndexed(r.Context(), videoID, s.cfg.EmbedModel)
	writeJSON(w, http.StatusOK, workflows.PipelineProgress{
		Stage:        string(v.Status),
		SegmentCount: segments,
		ChunkCount:   chunks,
		IndexedCount: indexed,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, err := s.search.Search(r.Context(), search.Params{
		Query:   q.Get("q"),
		TopK:    queryInt(r, "top_k", 0),
		VideoID: strings.TrimSpace(q.Get("video_id")),
	})
	if err != nil {
		switch {
		case errors.Is(err, util.ErrModelMismatch):
			writeErr(w, http.StatusInternalServerError, err)
		case strings.Contains(err.Error(), "must not be empty"):
			writeErr(w, http.StatusBadRequest, err)
		default:
			writeErr(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   strings.TrimSpace(q.Get("q")),
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.videoRepo.StatsByStatus(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"by_status": stats})
}

func (s *Server) startPipeline(ctx context.Context, videoID string, reset bool) (tclient.WorkflowRun, error) {
	return s.temporal.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                                       pipelineWorkflowID(videoID),
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.VideoPipelineWorkflow, workflows.VideoPipelineInput{
		VideoID:        videoID,
		Reset:          reset,
		MaxChunkChars:  s.cfg.MaxChunkChars,
		OverlapChars:   s.cfg.OverlapChars,
		EmbedMaxPasses: s.cfg.EmbedMaxPasses,
	})
}

// pipelineWorkflowID makes the workflow ID a pure function of the video, so
// Temporal's duplicate rejection gives each video at most one live pipeline.
func pipelineWorkflowID(videoID string) string {
	return "video-pipeline-" + videoID
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "SS-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "index was built with"):
			return apiError{
				Code:    "SS-CFG-5003",
				Message: "Embedding model does not match the index. Fix the configuration and re-embed.",
			}
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "SS-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "SS-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "SS-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "SS-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "SS-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "SS-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "SS-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusBadGateway:
		code = "SS-API-5020"
		msg = "Upstream provider unavailable. Retry shortly."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "storage_ref is required"):
			msg = "A storage reference is required when no file is uploaded."
		case strings.Contains(raw, "no file provided"):
			msg = "No media file was provided."
		case strings.Contains(raw, "unsupported media"):
			msg = "Unsupported media type. Upload mp4, mov, mkv, webm, mp3, wav, or m4a."
		case strings.Contains(raw, "upload exceeds"):
			msg = "Uploaded file exceeds the size limit."
		case strings.Contains(raw, "unknown status"):
			msg = "Unknown video status filter."
		case strings.Contains(raw, "must not be empty"):
			msg = "Search query must not be empty."
		case strings.Contains(raw, "already running"):
			msg = "A pipeline run is already in progress for this video."
		case strings.Contains(raw, "already indexed"):
			msg = "Video is already indexed. Pass reset=true to reprocess it."
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		case strings.Contains(raw, "not found"):
			msg = "Requested video was not found."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

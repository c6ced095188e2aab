package webapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"papla-server-go/internal/domain/eventbus"
	"papla-server-go/internal/domain/sequence"
	"papla-server-go/internal/domain/session"
	"papla-server-go/internal/domain/session/model"
	"papla-server-go/internal/domain/voice"
	"papla-server-go/internal/platform/config"
	platformerrors "papla-server-go/internal/platform/errors"
	"papla-server-go/internal/platform/logging"
	"papla-server-go/internal/platform/storage"
	httptransport "papla-server-go/internal/transport/http"
)

// Service is the HTTP surface of the speech workbench: session
// lifecycle, synthesis, clip listing and the sequencer trigger.
type Service struct {
	config    *config.Config
	logger    *logging.Logger
	sessions  *session.Manager
	sequencer *sequence.Sequencer
	repo      *storage.Repository
}

// NewService creates the webapi transport service.
func NewService(
	cfg *config.Config,
	logger *logging.Logger,
	sessions *session.Manager,
	sequencer *sequence.Sequencer,
	repo *storage.Repository,
) (*Service, error) {
	if cfg == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "webapi.new", "config is required")
	}
	if sessions == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "webapi.new", "session manager is required")
	}
	if sequencer == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "webapi.new", "sequencer is required")
	}

	return &Service{
		config:    cfg,
		logger:    logger,
		sessions:  sessions,
		sequencer: sequencer,
		repo:      repo,
	}, nil
}

// Register attaches the webapi routes. Everything except session
// creation and the system probe requires a session token.
func (s *Service) Register(ctx context.Context, router *httptransport.Router) error {
	router.API.POST("/session", s.handleSessionCreate)
	router.API.GET("/system/info", s.handleSystemInfo)

	secured := router.Secured
	if secured == nil {
		return platformerrors.New(platformerrors.KindTransport,
			"webapi.Register", "secured route group is required")
	}
	secured.DELETE("/session", s.handleSessionClose)
	secured.GET("/voices", s.handleVoices)
	secured.POST("/tts", s.handleSynthesize)
	secured.POST("/combine", s.handleCombine)
	secured.GET("/clips", s.handleClips)
	secured.GET("/history", s.handleHistory)
	secured.GET("/audio/:name", s.handleAudio)

	s.logger.InfoTag("HTTP", "webapi routes registered")
	return nil
}

// providerFor builds the voice provider a session synthesizes with,
// overlaying the session's credentials on the configured defaults.
func (s *Service) providerFor(info model.Info) (voice.Provider, error) {
	ttsCfg := s.config.TTS
	if info.Provider != "" {
		ttsCfg.Provider = info.Provider
	}
	if info.APIKey != "" {
		ttsCfg.APIKey = info.APIKey
	}
	return voice.New(ttsCfg, s.logger)
}

// handleSessionCreate opens a session.
// @Summary Create a session
// @Description Registers the client's provider api key and returns a session token.
// @Tags Session
// @Accept json
// @Produce json
// @Success 200 {object} httptransport.APIResponse
// @Router /session [post]
func (s *Service) handleSessionCreate(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "api_key is required", nil)
		return
	}

	provider := req.Provider
	if provider == "" {
		provider = s.config.TTS.Provider
	}

	info, token, err := s.sessions.Create(c.Request.Context(), req.APIKey, provider)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}

	eventbus.PublishAsync(eventbus.EventSessionCreated, eventbus.SessionEventData{
		SessionID: info.ID,
		Provider:  provider,
	})

	resp := CreateSessionResponse{
		SessionID: info.ID,
		Token:     token,
		Provider:  provider,
	}
	if info.ExpiresAt != nil {
		resp.ExpiresAt = info.ExpiresAt.Format(time.RFC3339)
	}
	httptransport.RespondSuccess(c, http.StatusOK, resp, "session created")
}

// handleSessionClose tears the session down along with its files.
func (s *Service) handleSessionClose(c *gin.Context) {
	info, ok := httptransport.SessionFromContext(c)
	if !ok {
		httptransport.RespondError(c, http.StatusUnauthorized, "missing session", nil)
		return
	}

	if err := s.sessions.Close(c.Request.Context(), info.ID); err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	if s.repo != nil {
		if err := s.repo.PurgeSession(info.ID); err != nil {
			s.logger.WarnTag("HTTP", "failed to purge session history", map[string]interface{}{
				"session_id": info.ID,
				"error":      err.Error(),
			})
		}
	}

	eventbus.PublishAsync(eventbus.EventSessionClosed, eventbus.SessionEventData{
		SessionID: info.ID,
	})
	httptransport.RespondSuccess(c, http.StatusOK, nil, "session closed")
}

// handleVoices lists the voices of the session's provider.
// @Summary List voices
// @Tags TTS
// @Produce json
// @Success 200 {object} httptransport.APIResponse
// @Router /voices [get]
func (s *Service) handleVoices(c *gin.Context) {
	info, _ := httptransport.SessionFromContext(c)

	provider, err := s.providerFor(info)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}

	voices, err := provider.ListVoices(c.Request.Context())
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"voices": voices}, "")
}

// handleSynthesize converts one script line to a clip in the session's
// clip directory. Clip names start with the unix timestamp so the
// sequencer plays them back in generation order.
// @Summary Synthesize speech
// @Tags TTS
// @Accept json
// @Produce json
// @Success 200 {object} httptransport.APIResponse
// @Router /tts [post]
func (s *Service) handleSynthesize(c *gin.Context) {
	info, _ := httptransport.SessionFromContext(c)

	var req SynthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "text is required", nil)
		return
	}

	provider, err := s.providerFor(info)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}

	format := req.Format
	if format == "" {
		format = s.config.TTS.Format
	}
	data, ext, err := provider.Synthesize(c.Request.Context(), req.Text, voice.SynthesisOptions{
		Voice:  req.Voice,
		Format: format,
	})
	if err != nil {
		eventbus.PublishAsync(eventbus.EventTTSError, eventbus.TTSEventData{
			SessionID:   info.ID,
			ScriptIndex: req.ScriptIndex,
			Voice:       req.Voice,
			Error:       err.Error(),
		})
		httptransport.RespondDomainError(c, err)
		return
	}

	clipName := clipFileName(req.ScriptIndex, ext)
	clipPath := filepath.Join(info.ClipDir, clipName)
	if err := os.WriteFile(clipPath, data, 0644); err != nil {
		httptransport.RespondDomainError(c, platformerrors.Wrap(
			platformerrors.KindFilesystem, "webapi.synthesize", "write clip", err))
		return
	}

	var durationMS int64
	if ext == ".mp3" {
		if d, err := sequence.ProbeDuration(clipPath); err == nil {
			durationMS = d.Milliseconds()
		}
	}

	eventbus.PublishAsync(eventbus.EventTTSCompleted, eventbus.TTSEventData{
		SessionID:   info.ID,
		ScriptIndex: req.ScriptIndex,
		ClipName:    clipName,
		Voice:       req.Voice,
		Format:      strings.TrimPrefix(ext, "."),
		DurationMS:  durationMS,
	})

	httptransport.RespondSuccess(c, http.StatusOK, SynthesizeResponse{
		ClipName:   clipName,
		Voice:      req.Voice,
		DurationMS: durationMS,
		SizeBytes:  len(data),
	}, "clip generated")
}

// handleCombine runs the sequencer over the session's clips.
// @Summary Combine clips
// @Description Concatenates the session's clips with randomized silence gaps.
// @Tags Sequence
// @Accept json
// @Produce json
// @Success 200 {object} httptransport.APIResponse
// @Router /combine [post]
func (s *Service) handleCombine(c *gin.Context) {
	info, _ := httptransport.SessionFromContext(c)

	var req CombineRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httptransport.RespondError(c, http.StatusBadRequest, "malformed request body", nil)
			return
		}
	}

	if req.GapMaxSeconds > 0 && req.GapMaxSeconds < req.GapMinSeconds {
		httptransport.RespondError(c, http.StatusBadRequest, "gap_max_seconds must be >= gap_min_seconds", nil)
		return
	}

	outputName := sanitizeFileName(req.OutputName)
	if outputName == "" {
		outputName = "combined_" + time.Now().Format("20060102_150405") + ".mp3"
	}
	outputPath := filepath.Join(s.sessions.MixDir(info.ID), outputName)

	opts := sequence.Options{
		GapMinSeconds: s.config.Sequence.GapMinSeconds,
		GapMaxSeconds: s.config.Sequence.GapMaxSeconds,
		SampleRate:    s.config.Sequence.SampleRate,
		ChannelLayout: s.config.Sequence.ChannelLayout,
	}
	if req.GapMinSeconds > 0 {
		opts.GapMinSeconds = req.GapMinSeconds
	}
	if req.GapMaxSeconds > 0 {
		opts.GapMaxSeconds = req.GapMaxSeconds
	}

	result, err := s.sequencer.CombineWithOptions(c.Request.Context(), info.ClipDir, outputPath, opts)
	if err != nil {
		eventbus.PublishAsync(eventbus.EventSequenceError, eventbus.SequenceEventData{
			SessionID:  info.ID,
			OutputName: outputName,
			Error:      err.Error(),
		})
		httptransport.RespondDomainError(c, err)
		return
	}

	eventbus.PublishAsync(eventbus.EventSequenceCompleted, eventbus.SequenceEventData{
		SessionID:     info.ID,
		OutputName:    outputName,
		ClipCount:     len(result.Clips),
		Gaps:          result.Gaps,
		GapMinSeconds: opts.GapMinSeconds,
		GapMaxSeconds: opts.GapMaxSeconds,
		ElapsedMS:     result.Elapsed.Milliseconds(),
	})

	httptransport.RespondSuccess(c, http.StatusOK, CombineResponse{
		OutputName: outputName,
		ClipCount:  len(result.Clips),
		Gaps:       result.Gaps,
		ElapsedMS:  result.Elapsed.Milliseconds(),
	}, "clips combined")
}

// handleClips lists the session's clips in playback order.
func (s *Service) handleClips(c *gin.Context) {
	info, _ := httptransport.SessionFromContext(c)

	clips, err := sequence.CollectClips(info.ClipDir)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}

	listing := make([]ClipInfo, 0, len(clips))
	for _, clip := range clips {
		entry := ClipInfo{Name: clip.Name}
		if stat, err := os.Stat(clip.Path); err == nil {
			entry.SizeBytes = stat.Size()
		}
		if strings.EqualFold(filepath.Ext(clip.Name), ".mp3") {
			if d, err := sequence.ProbeDuration(clip.Path); err == nil {
				entry.DurationMS = d.Milliseconds()
			}
		}
		listing = append(listing, entry)
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"clips": listing}, "")
}

// handleHistory returns the persisted generation and mix records.
func (s *Service) handleHistory(c *gin.Context) {
	info, _ := httptransport.SessionFromContext(c)

	if s.repo == nil {
		httptransport.RespondError(c, http.StatusNotImplemented, "history storage is disabled", nil)
		return
	}

	generations, err := s.repo.GenerationsBySession(info.ID)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	mixes, err := s.repo.MixesBySession(info.ID)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"generations": generations,
		"mixes":       mixes,
	}, "")
}

// handleAudio streams a clip or mix back to the client. Mixes shadow
// clips when both carry the same name.
func (s *Service) handleAudio(c *gin.Context) {
	info, _ := httptransport.SessionFromContext(c)

	name := sanitizeFileName(c.Param("name"))
	if name == "" {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid file name", nil)
		return
	}

	candidates := []string{
		filepath.Join(s.sessions.MixDir(info.ID), name),
		filepath.Join(info.ClipDir, name),
	}
	for _, path := range candidates {
		if stat, err := os.Stat(path); err == nil && !stat.IsDir() {
			c.FileAttachment(path, name)
			return
		}
	}
	httptransport.RespondError(c, http.StatusNotFound, "audio file not found", nil)
}

// clipFileName builds "<unix>_<index>.<ext>" so lexical ties inside the
// same second still resolve to script order.
func clipFileName(scriptIndex int, ext string) string {
	if ext == "" {
		ext = ".mp3"
	}
	return fmt.Sprintf("%d_%03d%s", time.Now().Unix(), scriptIndex, ext)
}

// sanitizeFileName strips path traversal from a client supplied name.
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}

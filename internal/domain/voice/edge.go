package voice

import (
	"context"
	"strings"
	"time"

	"github.com/wujunwei928/edge-tts-go/edge_tts"

	"papla-server-go/internal/platform/config"
	platformerrors "papla-server-go/internal/platform/errors"
	"papla-server-go/internal/platform/logging"
)

// edgeVoices is a curated subset; the service does not talk to the
// Microsoft catalogue endpoint.
var edgeVoices = []Voice{
	{ID: "en-US-AriaNeural", Name: "Aria", Language: "en-US", Gender: "Female", Description: "English female voice, natural"},
	{ID: "en-US-GuyNeural", Name: "Guy", Language: "en-US", Gender: "Male", Description: "English male voice, friendly"},
	{ID: "en-GB-SoniaNeural", Name: "Sonia", Language: "en-GB", Gender: "Female", Description: "British female voice"},
	{ID: "de-DE-KatjaNeural", Name: "Katja", Language: "de-DE", Gender: "Female", Description: "German female voice"},
	{ID: "fr-FR-DeniseNeural", Name: "Denise", Language: "fr-FR", Gender: "Female", Description: "French female voice"},
}

// EdgeProvider synthesizes through Microsoft Edge's free TTS endpoint.
// It needs no api key, which makes it the offline-friendly fallback
// when no Papla credentials are configured.
type EdgeProvider struct {
	defaultVoice string
	logger       *logging.Logger
}

func NewEdge(cfg config.TTSConfig, logger *logging.Logger) *EdgeProvider {
	voice := cfg.DefaultVoice
	if voice == "" || !strings.Contains(voice, "Neural") {
		voice = "en-US-AriaNeural"
	}
	return &EdgeProvider{
		defaultVoice: voice,
		logger:       logger,
	}
}

func (p *EdgeProvider) Name() string {
	return DriverEdge
}

func (p *EdgeProvider) ListVoices(_ context.Context) ([]Voice, error) {
	voices := make([]Voice, len(edgeVoices))
	copy(voices, edgeVoices)
	return voices, nil
}

func (p *EdgeProvider) Synthesize(_ context.Context, text string, opts SynthesisOptions) ([]byte, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", platformerrors.New(platformerrors.KindProvider,
			"edge.Synthesize", "text is empty")
	}

	voiceID := opts.Voice
	if voiceID == "" {
		voiceID = p.defaultVoice
	}

	communicate, err := edge_tts.NewCommunicate(text, edge_tts.SetVoice(voiceID))
	if err != nil {
		return nil, "", platformerrors.Wrap(platformerrors.KindProvider,
			"edge.Synthesize", "create communicator", err)
	}

	start := time.Now()
	audio, err := communicate.Stream()
	if err != nil {
		return nil, "", platformerrors.Wrap(platformerrors.KindProvider,
			"edge.Synthesize", "synthesis failed", err)
	}

	p.logger.DebugTag("TTS", "edge synthesis completed", map[string]interface{}{
		"voice":      voiceID,
		"bytes":      len(audio),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return audio, ".mp3", nil
}

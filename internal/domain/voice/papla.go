package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"papla-server-go/internal/platform/config"
	platformerrors "papla-server-go/internal/platform/errors"
	"papla-server-go/internal/platform/logging"
)

const (
	paplaDefaultBaseURL = "https://api.papla.media"
	paplaDefaultModel   = "papla_p1"
	paplaKeyHeader      = "papla-api-key"

	listVoicesTimeout = 30 * time.Second
)

// fallbackVoices keeps the voice picker usable when the catalogue
// endpoint returns something we cannot interpret.
var fallbackVoices = []Voice{
	{ID: "alloy", Name: "Alloy"},
	{ID: "bright", Name: "Bright"},
	{ID: "warm", Name: "Warm"},
	{ID: "resonant", Name: "Resonant"},
}

var mimeExtensions = map[string]string{
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/wave":  ".wav",
	"audio/ogg":   ".ogg",
}

// PaplaProvider talks to the Papla text-to-speech HTTP API.
type PaplaProvider struct {
	baseURL      string
	apiKey       string
	modelID      string
	defaultVoice string
	client       *http.Client
	logger       *logging.Logger
}

func NewPapla(cfg config.TTSConfig, logger *logging.Logger) *PaplaProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = paplaDefaultBaseURL
	}
	modelID := cfg.ModelID
	if modelID == "" {
		modelID = paplaDefaultModel
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &PaplaProvider{
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		modelID:      modelID,
		defaultVoice: cfg.DefaultVoice,
		client:       &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

func (p *PaplaProvider) Name() string {
	return DriverPapla
}

// ListVoices fetches the voice catalogue. Responses the parser cannot
// make sense of degrade to the fallback catalogue instead of failing.
func (p *PaplaProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	ctx, cancel := context.WithTimeout(ctx, listVoicesTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProvider,
			"papla.ListVoices", "build request", err)
	}
	req.Header.Set(paplaKeyHeader, p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProvider,
			"papla.ListVoices", "request voice catalogue", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProvider,
			"papla.ListVoices", "read voice catalogue", err)
	}

	if resp.StatusCode != http.StatusOK {
		p.logger.WarnTag("TTS", "voice catalogue returned status", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return fallbackVoices, nil
	}

	voices := parseVoiceCatalogue(body)
	if len(voices) == 0 {
		p.logger.WarnTag("TTS", "voice catalogue unparsable, using fallback list")
		return fallbackVoices, nil
	}
	return voices, nil
}

// parseVoiceCatalogue accepts the shapes the API has been observed to
// return: a bare array, or an object wrapping the array under one of a
// few well known keys.
func parseVoiceCatalogue(body []byte) []Voice {
	var items []map[string]interface{}
	if err := sonic.Unmarshal(body, &items); err == nil {
		return voicesFromItems(items)
	}

	var wrapper map[string]interface{}
	if err := sonic.Unmarshal(body, &wrapper); err != nil {
		return nil
	}
	for _, key := range []string{"voices", "data", "items", "results"} {
		raw, ok := wrapper[key].([]interface{})
		if !ok {
			continue
		}
		items = items[:0]
		for _, entry := range raw {
			if m, ok := entry.(map[string]interface{}); ok {
				items = append(items, m)
			}
		}
		if voices := voicesFromItems(items); len(voices) > 0 {
			return voices
		}
	}
	return nil
}

func voicesFromItems(items []map[string]interface{}) []Voice {
	var voices []Voice
	for _, item := range items {
		id := stringField(item, "voice_id")
		if id == "" {
			id = stringField(item, "id")
		}
		if id == "" {
			continue
		}
		name := stringField(item, "name")
		if name == "" {
			name = id
		}
		voices = append(voices, Voice{
			ID:          id,
			Name:        name,
			Language:    stringField(item, "language"),
			Gender:      stringField(item, "gender"),
			Description: stringField(item, "description"),
		})
	}
	return voices
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

type paplaSynthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize posts text to the per-voice synthesis endpoint and returns
// the raw audio plus the extension derived from the response mime type.
func (p *PaplaProvider) Synthesize(ctx context.Context, text string, opts SynthesisOptions) ([]byte, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", platformerrors.New(platformerrors.KindProvider,
			"papla.Synthesize", "text is empty")
	}

	voiceID := opts.Voice
	if voiceID == "" {
		voiceID = p.defaultVoice
	}
	if voiceID == "" {
		return nil, "", platformerrors.New(platformerrors.KindProvider,
			"papla.Synthesize", "no voice selected and no default configured")
	}

	payload, err := sonic.Marshal(paplaSynthesisRequest{
		Text:    text,
		ModelID: p.modelID,
	})
	if err != nil {
		return nil, "", platformerrors.Wrap(platformerrors.KindProvider,
			"papla.Synthesize", "encode request", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", p.baseURL, url.PathEscape(voiceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, "", platformerrors.Wrap(platformerrors.KindProvider,
			"papla.Synthesize", "build request", err)
	}
	req.Header.Set(paplaKeyHeader, p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", platformerrors.Wrap(platformerrors.KindProvider,
			"papla.Synthesize", "synthesis request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", platformerrors.Wrap(platformerrors.KindProvider,
			"papla.Synthesize", "read synthesis response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, "", platformerrors.New(platformerrors.KindProvider,
			"papla.Synthesize",
			fmt.Sprintf("synthesis returned status %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	ext := extensionForMIME(resp.Header.Get("Content-Type"), opts.Format)
	p.logger.DebugTag("TTS", "synthesis completed", map[string]interface{}{
		"voice":      voiceID,
		"bytes":      len(body),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return body, ext, nil
}

// extensionForMIME maps the response content type to a file extension.
// An unrecognized type falls back to the requested format, then mp3.
func extensionForMIME(contentType, requestedFormat string) string {
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}
	if ext, ok := mimeExtensions[strings.ToLower(mediaType)]; ok {
		return ext
	}
	if f := strings.TrimPrefix(strings.TrimSpace(requestedFormat), "."); f != "" {
		return "." + f
	}
	return ".mp3"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

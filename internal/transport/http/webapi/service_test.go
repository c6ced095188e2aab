package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"papla-server-go/internal/domain/sequence"
	"papla-server-go/internal/domain/session"
	sessionstore "papla-server-go/internal/domain/session/store"
	"papla-server-go/internal/platform/config"
	"papla-server-go/internal/platform/storage"
	httptransport "papla-server-go/internal/transport/http"
)

const testStubFFmpeg = `#!/bin/sh
if [ "$1" = "-version" ]; then exit 0; fi
if [ "$2" = "lavfi" ]; then : > "$6"; exit 0; fi
if [ "$2" = "concat" ]; then cp "$6" "${10}"; exit 0; fi
exit 1
`

type testEnv struct {
	engine   *httptransport.Router
	sessions *session.Manager
	repo     *storage.Repository
}

func newTestEnv(t *testing.T, providerURL string) *testEnv {
	t.Helper()

	dataDir := t.TempDir()
	stubPath := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(stubPath, []byte(testStubFFmpeg), 0755); err != nil {
		t.Fatalf("write stub ffmpeg: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.TTS.BaseURL = providerURL
	cfg.Sequence.FFmpegPath = stubPath
	cfg.Storage.DataDir = dataDir
	cfg.Web.StaticDir = t.TempDir()

	dsn := fmt.Sprintf("file:webapi-test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	repo := storage.NewRepository(db)

	st := sessionstore.NewMemory(sessionstore.Config{TTL: time.Hour})
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	token := session.NewSessionToken("test-secret").WithTTL(time.Hour)
	sessions := session.NewManager(st, token, dataDir, time.Hour, nil)

	sequencer := sequence.NewSequencer(sequence.NewRunner(stubPath), sequence.Options{
		GapMinSeconds: cfg.Sequence.GapMinSeconds,
		GapMaxSeconds: cfg.Sequence.GapMaxSeconds,
		SampleRate:    cfg.Sequence.SampleRate,
		ChannelLayout: cfg.Sequence.ChannelLayout,
	}, nil)

	router, err := httptransport.Build(httptransport.Options{
		Config:            cfg,
		SessionMiddleware: httptransport.SessionMiddleware(sessions),
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}

	svc, err := NewService(cfg, nil, sessions, sequencer, repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.Register(context.Background(), router); err != nil {
		t.Fatalf("Register: %v", err)
	}

	return &testEnv{engine: router, sessions: sessions, repo: repo}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.engine.Engine.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createSession(t *testing.T) (string, string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/session", "", CreateSessionRequest{
		APIKey:   "papla-key",
		Provider: "papla",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create session: status %d body %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data CreateSessionResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	if envelope.Data.Token == "" || envelope.Data.SessionID == "" {
		t.Fatalf("expected token and id, got %+v", envelope.Data)
	}
	return envelope.Data.Token, envelope.Data.SessionID
}

func TestSessionCreateAndAuth(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:0")

	token, _ := env.createSession(t)

	// missing token is rejected
	rec := env.do(t, http.MethodGet, "/api/clips", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	// valid token passes
	rec = env.do(t, http.MethodGet, "/api/clips", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestSessionCreateRequiresAPIKey(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:0")
	rec := env.do(t, http.MethodPost, "/api/session", "", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without api_key, got %d", rec.Code)
	}
}

func TestSynthesizeWritesClip(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/voices" {
			io.WriteString(w, `{"voices":[{"voice_id":"alloy","name":"Alloy"}]}`)
			return
		}
		if r.Header.Get("papla-api-key") != "papla-key" {
			t.Errorf("expected session api key forwarded, got %q", r.Header.Get("papla-api-key"))
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("fake-mp3"))
	}))
	defer provider.Close()

	env := newTestEnv(t, provider.URL)
	token, sessionID := env.createSession(t)

	rec := env.do(t, http.MethodGet, "/api/voices", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("voices: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/tts", token, SynthesizeRequest{
		Text:        "hello there",
		Voice:       "alloy",
		ScriptIndex: 0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("tts: status %d body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data SynthesizeResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode tts response: %v", err)
	}
	if envelope.Data.ClipName == "" || envelope.Data.SizeBytes != len("fake-mp3") {
		t.Fatalf("unexpected tts response: %+v", envelope.Data)
	}

	info, err := env.sessions.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	if _, err := os.Stat(filepath.Join(info.ClipDir, envelope.Data.ClipName)); err != nil {
		t.Fatalf("expected clip on disk: %v", err)
	}
	_ = sessionID

	// and it is downloadable
	rec = env.do(t, http.MethodGet, "/api/audio/"+envelope.Data.ClipName, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audio download: status %d", rec.Code)
	}
	if rec.Body.String() != "fake-mp3" {
		t.Fatalf("unexpected audio payload %q", rec.Body.String())
	}
}

func TestCombineEndpoint(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:0")
	token, _ := env.createSession(t)

	info, err := env.sessions.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	for _, name := range []string{"1700000001.mp3", "1700000002.mp3"} {
		if err := os.WriteFile(filepath.Join(info.ClipDir, name), []byte("audio"), 0644); err != nil {
			t.Fatalf("write clip: %v", err)
		}
	}

	rec := env.do(t, http.MethodPost, "/api/combine", token, CombineRequest{OutputName: "mix.mp3"})
	if rec.Code != http.StatusOK {
		t.Fatalf("combine: status %d body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data CombineResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode combine response: %v", err)
	}
	if envelope.Data.ClipCount != 2 || len(envelope.Data.Gaps) != 1 {
		t.Fatalf("unexpected combine response: %+v", envelope.Data)
	}

	rec = env.do(t, http.MethodGet, "/api/audio/mix.mp3", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mix download: status %d", rec.Code)
	}
}

func TestCombineGapOverrides(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:0")
	token, _ := env.createSession(t)

	info, err := env.sessions.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	for _, name := range []string{"1700000001.mp3", "1700000002.mp3", "1700000003.mp3"} {
		if err := os.WriteFile(filepath.Join(info.ClipDir, name), []byte("audio"), 0644); err != nil {
			t.Fatalf("write clip: %v", err)
		}
	}

	rec := env.do(t, http.MethodPost, "/api/combine", token, CombineRequest{
		OutputName:    "tight.mp3",
		GapMinSeconds: 0.5,
		GapMaxSeconds: 0.6,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("combine: status %d body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data CombineResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode combine response: %v", err)
	}
	if len(envelope.Data.Gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %+v", envelope.Data)
	}
	for _, gap := range envelope.Data.Gaps {
		if gap < 0.5 || gap > 0.6 {
			t.Fatalf("gap %.3f outside requested bounds", gap)
		}
	}

	rec = env.do(t, http.MethodPost, "/api/combine", token, CombineRequest{
		GapMinSeconds: 3,
		GapMaxSeconds: 1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted gap bounds, got %d", rec.Code)
	}
}

func TestCombineWithoutClips(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:0")
	token, _ := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/api/combine", token, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty clip dir, got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestSessionClose(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:0")
	token, _ := env.createSession(t)

	info, err := env.sessions.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}

	rec := env.do(t, http.MethodDelete, "/api/session", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("close session: status %d body %s", rec.Code, rec.Body.String())
	}

	if _, err := os.Stat(info.ClipDir); !os.IsNotExist(err) {
		t.Fatalf("expected clip dir removed, stat err = %v", err)
	}
	rec = env.do(t, http.MethodGet, "/api/clips", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after close, got %d", rec.Code)
	}
}

func TestAudioRejectsTraversal(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:0")
	token, _ := env.createSession(t)

	rec := env.do(t, http.MethodGet, "/api/audio/..%2F..%2Fetc%2Fpasswd", token, nil)
	if rec.Code == http.StatusOK {
		t.Fatalf("expected traversal to be rejected, got 200")
	}
}

func TestSystemInfoIsPublic(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:0")

	rec := env.do(t, http.MethodGet, "/api/system/info", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("system info: status %d body %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode system info: %v", err)
	}
	if envelope.Data["ffmpeg_available"] != true {
		t.Fatalf("expected stub ffmpeg to be reported available, got %v", envelope.Data["ffmpeg_available"])
	}
}

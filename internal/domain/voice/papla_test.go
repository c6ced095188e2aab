package voice

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"papla-server-go/internal/platform/config"
	platformerrors "papla-server-go/internal/platform/errors"
)

func newPaplaForServer(server *httptest.Server) *PaplaProvider {
	return NewPapla(config.TTSConfig{
		Provider:     DriverPapla,
		BaseURL:      server.URL,
		APIKey:       "test-key",
		ModelID:      "papla_p1",
		DefaultVoice: "alloy",
	}, nil)
}

func TestPaplaProvider_ListVoices(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantIDs []string
	}{
		{
			name:    "voices key",
			status:  http.StatusOK,
			body:    `{"voices":[{"voice_id":"v1","name":"One"},{"voice_id":"v2","name":"Two"}]}`,
			wantIDs: []string{"v1", "v2"},
		},
		{
			name:    "data key with id field",
			status:  http.StatusOK,
			body:    `{"data":[{"id":"v3"}]}`,
			wantIDs: []string{"v3"},
		},
		{
			name:    "bare array",
			status:  http.StatusOK,
			body:    `[{"voice_id":"v4","name":"Four"}]`,
			wantIDs: []string{"v4"},
		},
		{
			name:    "unparsable body falls back",
			status:  http.StatusOK,
			body:    `{"unexpected":true}`,
			wantIDs: []string{"alloy", "bright", "warm", "resonant"},
		},
		{
			name:    "error status falls back",
			status:  http.StatusInternalServerError,
			body:    `oops`,
			wantIDs: []string{"alloy", "bright", "warm", "resonant"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/voices" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if r.Header.Get("papla-api-key") != "test-key" {
					t.Errorf("missing api key header")
				}
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			voices, err := newPaplaForServer(server).ListVoices(context.Background())
			if err != nil {
				t.Fatalf("ListVoices: %v", err)
			}
			if len(voices) != len(tt.wantIDs) {
				t.Fatalf("expected %d voices, got %d", len(tt.wantIDs), len(voices))
			}
			for i, want := range tt.wantIDs {
				if voices[i].ID != want {
					t.Errorf("voice %d: expected id %s, got %s", i, want, voices[i].ID)
				}
			}
		})
	}
}

func TestPaplaProvider_ListVoicesNameDefaultsToID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"voices":[{"voice_id":"v1"}]}`)
	}))
	defer server.Close()

	voices, err := newPaplaForServer(server).ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if voices[0].Name != "v1" {
		t.Errorf("expected name to default to id, got %q", voices[0].Name)
	}
}

func TestPaplaProvider_Synthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/text-to-speech/warm" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("papla-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}

		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if payload["text"] != "hello world" {
			t.Errorf("expected text in payload, got %q", payload["text"])
		}
		if payload["model_id"] != "papla_p1" {
			t.Errorf("expected model_id papla_p1, got %q", payload["model_id"])
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	data, ext, err := newPaplaForServer(server).Synthesize(context.Background(), "hello world", SynthesisOptions{Voice: "warm"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Errorf("unexpected audio payload %q", data)
	}
	if ext != ".mp3" {
		t.Errorf("expected .mp3 extension, got %s", ext)
	}
}

func TestPaplaProvider_SynthesizeDefaultVoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/alloy" {
			t.Errorf("expected default voice in path, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("wav"))
	}))
	defer server.Close()

	_, ext, err := newPaplaForServer(server).Synthesize(context.Background(), "hi", SynthesisOptions{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if ext != ".wav" {
		t.Errorf("expected .wav extension, got %s", ext)
	}
}

func TestPaplaProvider_SynthesizeErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":"bad key"}`)
	}))
	defer server.Close()

	provider := newPaplaForServer(server)

	_, _, err := provider.Synthesize(context.Background(), "  ", SynthesisOptions{})
	if err == nil {
		t.Fatal("expected error for empty text")
	}
	if !platformerrors.IsKind(err, platformerrors.KindProvider) {
		t.Errorf("expected provider error, got %v", err)
	}

	_, _, err = provider.Synthesize(context.Background(), "hello", SynthesisOptions{})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestExtensionForMIME(t *testing.T) {
	tests := []struct {
		contentType string
		requested   string
		want        string
	}{
		{"audio/mpeg", "", ".mp3"},
		{"audio/mpeg; charset=binary", "", ".mp3"},
		{"audio/wav", "", ".wav"},
		{"audio/x-wav", "", ".wav"},
		{"audio/ogg", "", ".ogg"},
		{"application/octet-stream", "", ".mp3"},
		{"application/octet-stream", "wav", ".wav"},
		{"application/octet-stream", ".ogg", ".ogg"},
		{"audio/mpeg", "wav", ".mp3"},
		{"", "", ".mp3"},
	}
	for _, tt := range tests {
		if got := extensionForMIME(tt.contentType, tt.requested); got != tt.want {
			t.Errorf("extensionForMIME(%q, %q) = %s, want %s", tt.contentType, tt.requested, got, tt.want)
		}
	}
}

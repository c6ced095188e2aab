package voice

import (
	"testing"

	"papla-server-go/internal/platform/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.TTSConfig
		wantName string
		wantErr  bool
	}{
		{
			name:     "papla",
			cfg:      config.TTSConfig{Provider: DriverPapla, APIKey: "k"},
			wantName: "papla",
		},
		{
			name:    "papla without key",
			cfg:     config.TTSConfig{Provider: DriverPapla},
			wantErr: true,
		},
		{
			name:     "edge needs no key",
			cfg:      config.TTSConfig{Provider: DriverEdge},
			wantName: "edge",
		},
		{
			name:     "empty defaults to papla",
			cfg:      config.TTSConfig{APIKey: "k"},
			wantName: "papla",
		},
		{
			name:    "unknown driver",
			cfg:     config.TTSConfig{Provider: "polly"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := New(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if provider.Name() != tt.wantName {
				t.Errorf("expected provider %s, got %s", tt.wantName, provider.Name())
			}
		})
	}
}

package voice

import (
	"context"
)

// Driver identifiers supported by the voice domain.
const (
	DriverPapla = "papla"
	DriverEdge  = "edge"
)

// Voice describes one synthesis voice a provider offers.
type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Language    string `json:"language,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Description string `json:"description,omitempty"`
}

// SynthesisOptions are per-request overrides; empty fields fall back to
// the provider's configured defaults.
type SynthesisOptions struct {
	Voice  string
	Format string
}

// Provider turns text into audio bytes. Synthesize reports the file
// extension (".mp3" etc.) alongside the data so callers can name the
// clip they write.
type Provider interface {
	Name() string
	ListVoices(ctx context.Context) ([]Voice, error)
	Synthesize(ctx context.Context, text string, opts SynthesisOptions) ([]byte, string, error)
}

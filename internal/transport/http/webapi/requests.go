package webapi

// CreateSessionRequest opens a session for one browser client.
type CreateSessionRequest struct {
	APIKey   string `json:"api_key" binding:"required"`
	Provider string `json:"provider"`
}

// CreateSessionResponse hands the client its token.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	Provider  string `json:"provider"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// SynthesizeRequest turns one script line into a clip.
type SynthesizeRequest struct {
	Text        string `json:"text" binding:"required"`
	Voice       string `json:"voice"`
	Format      string `json:"format"`
	ScriptIndex int    `json:"script_index"`
}

// SynthesizeResponse reports the clip that was written.
type SynthesizeResponse struct {
	ClipName   string `json:"clip_name"`
	Voice      string `json:"voice"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	SizeBytes  int    `json:"size_bytes"`
}

// CombineRequest triggers the sequencer over the session's clips. Gap
// bounds are optional and fall back to the configured defaults.
type CombineRequest struct {
	OutputName    string  `json:"output_name"`
	GapMinSeconds float64 `json:"gap_min_seconds"`
	GapMaxSeconds float64 `json:"gap_max_seconds"`
}

// CombineResponse summarises the sequencer run.
type CombineResponse struct {
	OutputName string    `json:"output_name"`
	ClipCount  int       `json:"clip_count"`
	Gaps       []float64 `json:"gaps"`
	ElapsedMS  int64     `json:"elapsed_ms"`
}

// ClipInfo is one entry in the session clip listing.
type ClipInfo struct {
	Name       string `json:"name"`
	SizeBytes  int64  `json:"size_bytes"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}

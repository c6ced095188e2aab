package eventbus

// Event topics.
const (
	// synthesis
	EventTTSCompleted = "tts:completed"
	EventTTSError     = "tts:error"

	// sequencer
	EventSequenceCompleted = "sequence:completed"
	EventSequenceError     = "sequence:error"

	// session lifecycle
	EventSessionCreated = "session:created"
	EventSessionClosed  = "session:closed"

	// system
	EventSystemError = "system:error"
)

// TTSEventData describes one finished (or failed) synthesis call.
type TTSEventData struct {
	SessionID   string `json:"session_id"`
	ScriptIndex int    `json:"script_index"`
	ClipName    string `json:"clip_name"`
	Voice       string `json:"voice"`
	Format      string `json:"format"`
	DurationMS  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}

// SequenceEventData describes one finished sequencer run.
type SequenceEventData struct {
	SessionID     string    `json:"session_id"`
	OutputName    string    `json:"output_name"`
	ClipCount     int       `json:"clip_count"`
	Gaps          []float64 `json:"gaps"`
	GapMinSeconds float64   `json:"gap_min_seconds"`
	GapMaxSeconds float64   `json:"gap_max_seconds"`
	ElapsedMS     int64     `json:"elapsed_ms"`
	Error         string    `json:"error,omitempty"`
}

// SessionEventData carries session lifecycle notifications.
type SessionEventData struct {
	SessionID string `json:"session_id"`
	Provider  string `json:"provider,omitempty"`
}

// SystemEventData carries out-of-band error reports.
type SystemEventData struct {
	Level   string      `json:"level"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

package model

import "time"

// Info is everything the server keeps about one browser session: the
// credentials it synthesizes with and the directory its clips live in.
type Info struct {
	ID        string         `json:"id"`
	APIKey    string         `json:"api_key"`
	Provider  string         `json:"provider"`
	ClipDir   string         `json:"clip_dir"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Expired reports whether the session's deadline has passed.
func (i Info) Expired() bool {
	return i.ExpiresAt != nil && time.Now().After(*i.ExpiresAt)
}

package eventbus

import (
	"papla-server-go/internal/platform/logging"
	"papla-server-go/internal/platform/storage"
)

// HistoryRecorder subscribes to completion events and persists them so
// a session's generations and mixes survive a server restart.
type HistoryRecorder struct {
	repo   *storage.Repository
	logger *logging.Logger
}

func NewHistoryRecorder(repo *storage.Repository, logger *logging.Logger) *HistoryRecorder {
	return &HistoryRecorder{repo: repo, logger: logger}
}

// Register attaches the recorder to the async bus.
func (h *HistoryRecorder) Register(bus *AsyncEventBus) error {
	if err := bus.SubscribeAsync(EventTTSCompleted, h.onTTSCompleted); err != nil {
		return err
	}
	return bus.SubscribeAsync(EventSequenceCompleted, h.onSequenceCompleted)
}

func (h *HistoryRecorder) onTTSCompleted(data TTSEventData) {
	err := h.repo.RecordGeneration(&storage.GenerationRecord{
		SessionID:   data.SessionID,
		ScriptIndex: data.ScriptIndex,
		ClipName:    data.ClipName,
		Voice:       data.Voice,
		Format:      data.Format,
		DurationMS:  data.DurationMS,
	})
	if err != nil {
		h.logger.WarnTag("EVENT", "failed to record generation", map[string]interface{}{
			"session_id": data.SessionID,
			"error":      err.Error(),
		})
	}
}

func (h *HistoryRecorder) onSequenceCompleted(data SequenceEventData) {
	err := h.repo.RecordMix(&storage.MixRecord{
		SessionID:     data.SessionID,
		OutputName:    data.OutputName,
		ClipCount:     data.ClipCount,
		GapMinSeconds: data.GapMinSeconds,
		GapMaxSeconds: data.GapMaxSeconds,
	})
	if err != nil {
		h.logger.WarnTag("EVENT", "failed to record mix", map[string]interface{}{
			"session_id": data.SessionID,
			"error":      err.Error(),
		})
	}
}

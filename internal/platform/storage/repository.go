package storage

import (
	"gorm.io/gorm"

	platformerrors "papla-server-go/internal/platform/errors"
)

// Repository persists per-session generation and mix history.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) RecordGeneration(rec *GenerationRecord) error {
	if err := r.db.Create(rec).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage,
			"repository.RecordGeneration", "insert generation record", err)
	}
	return nil
}

func (r *Repository) RecordMix(rec *MixRecord) error {
	if err := r.db.Create(rec).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage,
			"repository.RecordMix", "insert mix record", err)
	}
	return nil
}

// GenerationsBySession returns the session's clips in submission order.
func (r *Repository) GenerationsBySession(sessionID string) ([]GenerationRecord, error) {
	var records []GenerationRecord
	err := r.db.
		Where("session_id = ?", sessionID).
		Order("script_index ASC").
		Find(&records).Error
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage,
			"repository.GenerationsBySession", "query generation records", err)
	}
	return records, nil
}

func (r *Repository) MixesBySession(sessionID string) ([]MixRecord, error) {
	var records []MixRecord
	err := r.db.
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage,
			"repository.MixesBySession", "query mix records", err)
	}
	return records, nil
}

// PurgeSession removes all history rows for a closed session.
func (r *Repository) PurgeSession(sessionID string) error {
	if err := r.db.Where("session_id = ?", sessionID).Delete(&GenerationRecord{}).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage,
			"repository.PurgeSession", "delete generation records", err)
	}
	if err := r.db.Where("session_id = ?", sessionID).Delete(&MixRecord{}).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage,
			"repository.PurgeSession", "delete mix records", err)
	}
	return nil
}

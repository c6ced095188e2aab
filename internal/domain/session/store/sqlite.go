package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"papla-server-go/internal/domain/session/model"
	"papla-server-go/internal/platform/storage"
)

type sqliteStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewSQLite builds a SQLite-backed session store.
func NewSQLite(db *gorm.DB, cfg Config) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{
		db:  db,
		ttl: cfg.TTL,
	}, nil
}

func (s *sqliteStore) Save(ctx context.Context, info model.Info) error {
	if info.ID == "" {
		return fmt.Errorf("session id required")
	}
	now := time.Now()
	if info.CreatedAt.IsZero() {
		info.CreatedAt = now
	}
	if info.ExpiresAt == nil && s.ttl > 0 {
		exp := info.CreatedAt.Add(s.ttl)
		info.ExpiresAt = &exp
	}
	meta, _ := json.Marshal(info.Metadata)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", info.ID).Delete(&storage.SessionRecord{}).Error; err != nil {
			return err
		}
		record := &storage.SessionRecord{
			SessionID: info.ID,
			APIKey:    info.APIKey,
			Provider:  info.Provider,
			ClipDir:   info.ClipDir,
			CreatedAt: info.CreatedAt,
			ExpiresAt: info.ExpiresAt,
			Metadata:  meta,
		}
		return tx.Create(record).Error
	})
}

func (s *sqliteStore) Get(ctx context.Context, sessionID string) (model.Info, error) {
	info, err := s.fetch(ctx, sessionID)
	if err != nil {
		return model.Info{}, err
	}
	if info.Expired() {
		return model.Info{}, fmt.Errorf("session expired: %s", sessionID)
	}
	return info, nil
}

func (s *sqliteStore) Remove(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&storage.SessionRecord{}).Error
}

func (s *sqliteStore) List(ctx context.Context) ([]string, error) {
	var records []storage.SessionRecord
	if err := s.db.WithContext(ctx).Select("session_id", "expires_at").Find(&records).Error; err != nil {
		return nil, err
	}
	now := time.Now()
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r.ExpiresAt == nil || now.Before(*r.ExpiresAt) {
			ids = append(ids, r.SessionID)
		}
	}
	return ids, nil
}

func (s *sqliteStore) CleanupExpired(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).
		Delete(&storage.SessionRecord{}).
		Error
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&storage.SessionRecord{}).Count(&total).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"type":  "sqlite",
		"total": total,
		"ttl":   int(s.ttl.Seconds()),
	}, nil
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}

func (s *sqliteStore) fetch(ctx context.Context, sessionID string) (model.Info, error) {
	var record storage.SessionRecord
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&record).Error
	if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Info{}, fmt.Errorf("session not found: %s", sessionID)
	}
	if err != nil {
		return model.Info{}, err
	}
	info := model.Info{
		ID:        record.SessionID,
		APIKey:    record.APIKey,
		Provider:  record.Provider,
		ClipDir:   record.ClipDir,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}
	if len(record.Metadata) > 0 {
		var meta map[string]any
		if err := json.Unmarshal(record.Metadata, &meta); err == nil {
			info.Metadata = meta
		}
	}
	return info, nil
}

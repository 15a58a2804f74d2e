package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StateDocument is one persisted state family. The store keeps the same
// named-document contract as the file backend; the table is a key/jsonb pair,
// not a relational schema.
type StateDocument struct {
	Name      string    `gorm:"primaryKey;size:64"`
	Data      []byte    `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// GormStore persists documents in Postgres.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&StateDocument{}); err != nil {
		return nil, fmt.Errorf("failed to migrate state_documents: %w", err)
	}
	return &GormStore{DB: db}, nil
}

func (s *GormStore) Put(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", name, err)
	}
	doc := StateDocument{Name: name, Data: data}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&doc).Error
}

func (s *GormStore) Get(name string, v any) (bool, error) {
	var doc StateDocument
	if err := s.DB.First(&doc, "name = ?", name).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to read document %s: %w", name, err)
	}
	if err := json.Unmarshal(doc.Data, v); err != nil {
		return false, fmt.Errorf("failed to decode document %s: %w", name, err)
	}
	return true, nil
}

func (s *GormStore) Snapshot() (map[string]json.RawMessage, error) {
	var docs []StateDocument
	if err := s.DB.Find(&docs).Error; err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(docs))
	for _, d := range docs {
		out[d.Name] = json.RawMessage(d.Data)
	}
	return out, nil
}

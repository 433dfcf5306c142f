package model

import "time"

// StoredValue is one key of a client's durable storage in the SQL backend.
type StoredValue struct {
	Key       string    `json:"key" gorm:"column:storage_key;primaryKey;size:191"`
	Value     string    `json:"value" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table name independent of GORM's pluralizer.
func (StoredValue) TableName() string {
	return "portal_storage"
}

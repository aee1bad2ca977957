package model

import "time"

// QuotaRecord is the ledger value for one (identifier, UTC day) key.
// Count never decreases; concurrent read-then-write increments can
// under-count, which the admission path tolerates.
type QuotaRecord struct {
	Count     int       `json:"count"`
	LastWrite time.Time `json:"last_write"`
	CreatedAt time.Time `json:"created_at"`
}

// StorageBlob is one persisted document of the capacity-bounded store.
type StorageBlob struct {
	Key       string    `json:"key" gorm:"primaryKey;type:text;not null"`
	Value     []byte    `json:"-" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

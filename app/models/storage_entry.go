package models

import "time"

// StorageEntry holds the current value of a key in the mysql shared storage.
type StorageEntry struct {
	Key       string `gorm:"size:191;primaryKey"`
	Value     []byte `gorm:"type:mediumblob"`
	Origin    string `gorm:"size:64"`
	UpdatedAt time.Time
}

// StorageChange is the change log other processes poll. IDs come from
// AUTO_INCREMENT, so every writer shares one ordering regardless of its
// clock.
type StorageChange struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Key       string    `gorm:"size:191;not null"`
	Origin    string    `gorm:"size:64"`
	CreatedAt time.Time `gorm:"index"`
}

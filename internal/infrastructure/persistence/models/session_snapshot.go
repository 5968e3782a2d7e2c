package models

import "time"

// SessionSnapshot is one serialized session value (cart, profile, cart
// token) keyed by its namespaced storage key
type SessionSnapshot struct {
	Key       string    `gorm:"primaryKey;size:255"`
	Value     []byte    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index"`
}

// TableName implements gorm's tabler
func (SessionSnapshot) TableName() string {
	return "session_snapshots"
}

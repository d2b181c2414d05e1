package storage

import (
	"time"

	"gorm.io/gorm"
)

// WeatherSnapshot is one successful current-weather payload as the provider
// returned it.
type WeatherSnapshot struct {
	gorm.Model
	Location   string    `gorm:"index" json:"location"`
	CapturedAt time.Time `gorm:"index" json:"captured_at"`
	Payload    []byte    `json:"payload"`
}

// Quote is a sentence that was fetched upstream and fit the panel.
type Quote struct {
	gorm.Model
	Text     string    `gorm:"uniqueIndex" json:"text"`
	LastSeen time.Time `gorm:"index" json:"last_seen"`
}

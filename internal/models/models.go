package models

import (
	"time"
)

// Stroke is one recorded hit.
type Stroke struct {
	ID        int       `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Level     int       `db:"level" json:"level"`
	Stroke    int       `db:"stroke" json:"stroke"`
	Aim       float64   `db:"aim" json:"aim"`
	Power     float64   `db:"power" json:"power"`
	X         float64   `db:"x" json:"x"`
	Y         float64   `db:"y" json:"y"`
	Z         float64   `db:"z" json:"z"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LevelScore is the per-level stroke count of a session.
type LevelScore struct {
	Level   int `db:"level" json:"level"`
	Strokes int `db:"strokes" json:"strokes"`
}

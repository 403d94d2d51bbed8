package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/minigolf/internal/game"
	"github.com/playmatatu/minigolf/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	EventsChannel = "golf_events"
	summaryTTL    = time.Hour
)

func SummaryKey(sessionID string) string {
	return "golf:" + sessionID + ":summary"
}

// Recorder writes strokes to Postgres and summaries and events to Redis.
// Either client may be nil, in which case that half is a no-op.
type Recorder struct {
	db  *sqlx.DB
	rdb *redis.Client
}

func NewRecorder(db *sqlx.DB, rdb *redis.Client) *Recorder {
	return &Recorder{db: db, rdb: rdb}
}

// RecordStroke inserts one hit into golf_strokes.
func (r *Recorder) RecordStroke(ctx context.Context, sessionID string, e game.Event) error {
	if r == nil || r.db == nil {
		return nil
	}

	s := models.Stroke{
		SessionID: sessionID,
		Level:     e.Level,
		Stroke:    e.Strokes,
		Aim:       e.Aim,
		Power:     e.Power,
		X:         e.Position[0],
		Y:         e.Position[1],
		Z:         e.Position[2],
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO golf_strokes (session_id, level, stroke, aim, power, x, y, z, created_at)
		 VALUES (:session_id, :level, :stroke, :aim, :power, :x, :y, :z, NOW())`, s)
	if err != nil {
		return fmt.Errorf("insert stroke for %s: %w", sessionID, err)
	}
	return nil
}

// Strokes lists the recorded hits of a session in order.
func (r *Recorder) Strokes(ctx context.Context, sessionID string) ([]models.Stroke, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	var strokes []models.Stroke
	err := r.db.SelectContext(ctx, &strokes,
		`SELECT id, session_id, level, stroke, aim, power, x, y, z, created_at
		 FROM golf_strokes WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("select strokes for %s: %w", sessionID, err)
	}
	return strokes, nil
}

// Scorecard is the stroke count per level of a session.
func (r *Recorder) Scorecard(ctx context.Context, sessionID string) ([]models.LevelScore, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	var scores []models.LevelScore
	err := r.db.SelectContext(ctx, &scores,
		`SELECT level, COUNT(*) AS strokes FROM golf_strokes
		 WHERE session_id = $1 GROUP BY level ORDER BY level`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("scorecard for %s: %w", sessionID, err)
	}
	return scores, nil
}

type summary struct {
	SessionID      string      `json:"session_id"`
	Level          int         `json:"level"`
	LevelName      string      `json:"level_name"`
	Status         game.Status `json:"status"`
	Strokes        int         `json:"strokes"`
	TotalStrokes   int         `json:"total_strokes"`
	HolesCompleted int         `json:"holes_completed"`
	T              float64     `json:"t"`
	StepsTaken     uint64      `json:"steps_taken"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// SaveSummary stores the score part of a snapshot under golf:<id>:summary.
func (r *Recorder) SaveSummary(ctx context.Context, sessionID string, snap *game.Snapshot) error {
	if r == nil || r.rdb == nil || snap == nil {
		return nil
	}

	data, err := json.Marshal(summary{
		SessionID:      sessionID,
		Level:          snap.Level,
		LevelName:      snap.LevelName,
		Status:         snap.Status,
		Strokes:        snap.Strokes,
		TotalStrokes:   snap.TotalStrokes,
		HolesCompleted: snap.HolesCompleted,
		T:              snap.T,
		StepsTaken:     snap.StepsTaken,
		UpdatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return r.rdb.SetEx(ctx, SummaryKey(sessionID), data, summaryTTL).Err()
}

// PublishEvent fans an event out on the golf_events channel.
func (r *Recorder) PublishEvent(ctx context.Context, sessionID string, e game.Event) error {
	if r == nil || r.rdb == nil {
		return nil
	}

	payload := map[string]interface{}{"session_id": sessionID, "event": e}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, EventsChannel, b).Err()
}

var _ game.Recorder = (*Recorder)(nil)

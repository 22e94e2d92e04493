package store

import (
	"database/sql"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Event types for relay analytics
const (
	EvtRoomCreated = "room_created"
	EvtRoomClosed  = "room_closed"
	EvtPeerJoined  = "peer_joined"
	EvtPeerLeft    = "peer_left"
	EvtJoinFailed  = "join_failed"
)

// FlushInterval is how often queued analytics are written
var FlushInterval = 5 * time.Second

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string
	RoomID    string
	Actor     int32
	Data      string
	Timestamp time.Time
}

// Analytics handles event tracking with batched background writes
type Analytics struct {
	db     *DB
	events chan AnalyticsEvent
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewAnalytics creates and starts the analytics background writer. A nil db
// makes every call a no-op.
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan AnalyticsEvent, 1024),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evtType, roomID string, actor int32, data string) {
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		RoomID:    roomID,
		Actor:     actor,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// full: drop rather than block the hub
	}
}

// Stop flushes pending events and shuts the writer down
func (a *Analytics) Stop() {
	close(a.stop)
	a.wg.Wait()
}

// writer is the background goroutine that batches and writes events to DB
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, 64)
	ticker := time.NewTicker(FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= 50 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			for len(a.events) > 0 {
				batch = append(batch, <-a.events)
			}
			a.flush(batch)
			return
		}
	}
}

// flush writes a batch of events to the database
func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		log.WithError(err).Warn("analytics: begin tx")
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analytics_events (event_type, room_id, actor, data, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		log.WithError(err).Warn("analytics: prepare")
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		room := sql.NullString{String: evt.RoomID, Valid: evt.RoomID != ""}
		actor := sql.NullInt64{Int64: int64(evt.Actor), Valid: evt.Actor > 0}
		data := sql.NullString{String: evt.Data, Valid: evt.Data != ""}
		if _, err := stmt.Exec(evt.Type, room, actor, data, evt.Timestamp.Format(time.RFC3339)); err != nil {
			log.WithError(err).Warn("analytics: insert")
		}
	}
	if err := tx.Commit(); err != nil {
		log.WithError(err).Warn("analytics: commit")
	}
}

// EventCounts returns counts of each event type for the last N days
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	if a.db == nil {
		return map[string]int{}, nil
	}
	since := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= ?
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			continue
		}
		result[evtType] = count
	}
	return result, rows.Err()
}

package analytics

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/marcboeker/go-duckdb"
	"github.com/portfolio-collage/backend/internal/models"
)

// DefaultBatchSize is how many drag events are buffered before they are
// appended to DuckDB.
const DefaultBatchSize = 256

// ImageStat aggregates drag starts for one image source.
type ImageStat struct {
	ImageSrc    string    `json:"imageSrc"`
	Drags       int64     `json:"drags"`
	LastDragged time.Time `json:"lastDragged"`
}

// SessionStats summarizes the drag activity of one collage session.
type SessionStats struct {
	SessionID  string    `json:"sessionId"`
	Starts     int64     `json:"starts"`
	Stops      int64     `json:"stops"`
	Actors     int64     `json:"actors"`
	FirstEvent time.Time `json:"firstEvent,omitempty"`
	LastEvent  time.Time `json:"lastEvent,omitempty"`
}

// EventStore records drag events in a DuckDB file and answers
// aggregate queries over them.
type EventStore struct {
	db        *sql.DB
	dbPath    string
	batchSize int

	mu        sync.Mutex // guards batch and lastError
	batch     []models.DragEvent
	lastError error
}

// NewEventStore opens (or creates) the analytics database at dbPath.
func NewEventStore(dbPath string) (*EventStore, error) {
	fmt.Printf("[DragAnalytics] Opening database at: %s\n", dbPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating analytics directory: %w", err)
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='256MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				fmt.Printf("[DragAnalytics] Pragma warning: %v\n", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS drag_events (
			session_id  VARCHAR NOT NULL,
			image_index BIGINT NOT NULL,
			image_src   VARCHAR,
			actor       VARCHAR,
			kind        VARCHAR NOT NULL,
			ts          BIGINT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &EventStore{
		db:        db,
		dbPath:    dbPath,
		batchSize: DefaultBatchSize,
		batch:     make([]models.DragEvent, 0, DefaultBatchSize),
	}, nil
}

// Record buffers a drag event. The buffer is appended to DuckDB once it
// reaches the batch size.
func (es *EventStore) Record(ctx context.Context, ev models.DragEvent) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	es.batch = append(es.batch, ev)
	if len(es.batch) < es.batchSize {
		return nil
	}
	if err := es.flushLocked(ctx); err != nil {
		es.lastError = err
		return err
	}
	return nil
}

// Flush appends any buffered events.
func (es *EventStore) Flush(ctx context.Context) error {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.flushLocked(ctx)
}

// LastError returns the last error that occurred during a batch flush
func (es *EventStore) LastError() error {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.lastError
}

// flushLocked writes the buffered events with the DuckDB Appender API.
// Caller must hold es.mu.
func (es *EventStore) flushLocked(ctx context.Context) error {
	if len(es.batch) == 0 {
		return nil
	}

	conn, err := es.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "drag_events")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for i, ev := range es.batch {
			err := appender.AppendRow(
				ev.SessionID,
				int64(ev.ImageIndex),
				ev.ImageSrc,
				ev.Actor,
				string(ev.Kind),
				ev.Timestamp.UnixMilli(),
			)
			if err != nil {
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}

	es.batch = es.batch[:0]
	return nil
}

// Run flushes buffered events every interval until ctx is cancelled.
func (es *EventStore) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := es.Flush(ctx); err != nil {
				fmt.Printf("[DragAnalytics] flush error: %v\n", err)
			}
		}
	}
}

// TopImages returns the most dragged images, most popular first.
func (es *EventStore) TopImages(ctx context.Context, limit int) ([]ImageStat, error) {
	if err := es.Flush(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := es.db.QueryContext(ctx, `
		SELECT image_src, COUNT(*) AS drags, MAX(ts) AS last_ts
		FROM drag_events
		WHERE kind = ? AND image_src IS NOT NULL AND image_src != ''
		GROUP BY image_src
		ORDER BY drags DESC, image_src
		LIMIT ?
	`, string(models.DragStarted), limit)
	if err != nil {
		return nil, fmt.Errorf("querying top images: %w", err)
	}
	defer rows.Close()

	stats := make([]ImageStat, 0, limit)
	for rows.Next() {
		var s ImageStat
		var lastTs int64
		if err := rows.Scan(&s.ImageSrc, &s.Drags, &lastTs); err != nil {
			return nil, err
		}
		s.LastDragged = time.UnixMilli(lastTs)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// SessionSummary returns drag counts for one session. A session with no
// events yields zero counts.
func (es *EventStore) SessionSummary(ctx context.Context, sessionID string) (*SessionStats, error) {
	if err := es.Flush(ctx); err != nil {
		return nil, err
	}

	stats := &SessionStats{SessionID: sessionID}
	var firstTs, lastTs int64
	err := es.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE kind = 'start'),
			COUNT(*) FILTER (WHERE kind = 'stop'),
			COUNT(DISTINCT actor),
			COALESCE(MIN(ts), 0),
			COALESCE(MAX(ts), 0)
		FROM drag_events
		WHERE session_id = ?
	`, sessionID).Scan(&stats.Starts, &stats.Stops, &stats.Actors, &firstTs, &lastTs)
	if err != nil {
		return nil, fmt.Errorf("querying session summary: %w", err)
	}
	if firstTs > 0 {
		stats.FirstEvent = time.UnixMilli(firstTs)
		stats.LastEvent = time.UnixMilli(lastTs)
	}
	return stats, nil
}

// Close flushes pending events and closes the database.
func (es *EventStore) Close() error {
	if err := es.Flush(context.Background()); err != nil {
		fmt.Printf("[DragAnalytics] final flush error: %v\n", err)
	}
	return es.db.Close()
}

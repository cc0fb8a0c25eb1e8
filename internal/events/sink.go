package events

import (
    "context"
    "fmt"
    "os"
    "path/filepath"
    "sync"
    "time"

    "github.com/iliyamo/show-reservation/internal/metrics"
)

// LogSink appends one human readable line per event to a file.
type LogSink struct {
    path string
    mu   sync.Mutex
}

func NewLogSink(path string) *LogSink { return &LogSink{path: path} }

// Handle is a Handler.
func (s *LogSink) Handle(_ context.Context, ev ReservationEvent) error {
    if ev.Type != TypeBooked && ev.Type != TypeCancelled {
        return fmt.Errorf("unknown event type %q", ev.Type)
    }
    s.mu.Lock()
    defer s.mu.Unlock()

    if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    metrics.EventsConsumed.WithLabelValues(ev.Type).Inc()
    return nil
}

// FormatLine renders ev as a single newline-terminated line.
func FormatLine(ev ReservationEvent) string {
    verb := "booked"
    if ev.Type == TypeCancelled {
        verb = "cancelled"
    }
    return fmt.Sprintf("[%s] Reservation %s | reservation_id=%d | user_id=%d | show_id=%d | show=%q | date=%s | seat=%s-%d | price=%d | balance=%d\n",
        ev.OccurredAt.UTC().Format(time.RFC3339), verb, ev.ReservationID, ev.UserID, ev.ShowID, ev.ShowName,
        ev.PerformanceDate.UTC().Format(time.RFC3339), ev.Section, ev.SeatNumber, ev.Price, ev.BalanceAfter)
}

package sqlite

import (
	"fmt"
	"time"

	"github.com/rpggio/pagesmith/internal/domain/document"
)

// timeLayout is fixed-width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return document.CanonicalTime(t).Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// monotonicUpdatedAt keeps updated_at from moving backwards when the wall
// clock does.
const monotonicUpdatedAt = "updated_at = CASE WHEN updated_at > ? THEN updated_at ELSE ? END"

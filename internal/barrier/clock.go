// internal/barrier/clock.go
package barrier

import (
	"time"

	"github.com/bangzek/clock"
)

// Clock is the wall-clock surface this package reads.
type Clock interface {
	Now() time.Time
}

var ctime Clock = clock.New()

// SetClock replaces the package clock. Tests only.
func SetClock(c Clock) {
	ctime = c
}

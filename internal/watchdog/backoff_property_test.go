package watchdog_test

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/wxrelay/wxrelay/internal/watchdog"
)

// expectedDelay mirrors min(base * 2^n, max) without shifting past the cap.
func expectedDelay(base, maxDelay time.Duration, failures int) time.Duration {
	delay := base
	for range failures {
		if delay >= maxDelay {
			return maxDelay
		}
		delay *= 2
	}
	return min(delay, maxDelay)
}

func TestBackoffProperties(t *testing.T) {
	t.Parallel()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("delay equals min(base*2^n, max)", prop.ForAll(
		func(baseMS, maxMS, failures int) bool {
			base := time.Duration(baseMS) * time.Millisecond
			maxDelay := time.Duration(maxMS) * time.Millisecond
			b := watchdog.NewBackoff(base, maxDelay)

			for n := 1; n <= failures; n++ {
				if b.Next() != expectedDelay(base, maxDelay, n) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 5000),
		gen.IntRange(1000, 120000),
		gen.IntRange(1, 30),
	))

	properties.Property("delays never decrease and never exceed max", prop.ForAll(
		func(baseMS, failures int) bool {
			base := time.Duration(baseMS) * time.Millisecond
			maxDelay := 60 * time.Second
			b := watchdog.NewBackoff(base, maxDelay)

			var previous time.Duration
			for range failures {
				delay := b.Next()
				if delay < previous || delay > maxDelay {
					return false
				}
				previous = delay
			}
			return true
		},
		gen.IntRange(1, 5000),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}

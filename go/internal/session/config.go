package session

import "time"

// Config holds the coordinator's tunables. The delays are explicit,
// documented reconciliation constants, not hidden timing assumptions.
type Config struct {
	// DefaultRounds and DefaultTimeLimitSec apply to solo sessions and as
	// fallbacks when the host creates a room without explicit settings.
	DefaultRounds       int
	DefaultTimeLimitSec int

	// DefaultName substitutes for an empty display name in solo play.
	DefaultName string

	// BroadcastSettle is how long the host waits between broadcasting
	// the session-starting event and persisting room status, giving the
	// broadcast a head start over the row-change notification.
	BroadcastSettle time.Duration

	// RoundSettleDelay is the follower's initial wait before reading a
	// freshly created round row, tolerating write-propagation latency.
	RoundSettleDelay time.Duration

	// RoundPollRetries and RoundPollBackoff bound the follower's
	// re-reads when the round row is not yet visible. The backoff grows
	// linearly per attempt.
	RoundPollRetries int
	RoundPollBackoff time.Duration

	// MultiplayerGrace is how long the host waits after its own guess
	// before aggregating results, letting late guesses land. Solo
	// sessions aggregate immediately.
	MultiplayerGrace time.Duration

	// OnChange, when set, receives an immutable snapshot after every
	// state change. It is invoked from the coordinator's own loop and
	// must not call back into the coordinator.
	OnChange func(Snapshot)
}

// DefaultConfig returns the production tunables.
func DefaultConfig() Config {
	return Config{
		DefaultRounds:       5,
		DefaultTimeLimitSec: 90,
		DefaultName:         "Traveler",
		BroadcastSettle:     300 * time.Millisecond,
		RoundSettleDelay:    600 * time.Millisecond,
		RoundPollRetries:    5,
		RoundPollBackoff:    300 * time.Millisecond,
		MultiplayerGrace:    4 * time.Second,
	}
}

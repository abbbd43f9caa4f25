package browser

import "time"

// The portal serves different markup to obvious bots, so every session
// presents a fixed desktop profile.
const (
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:109.0) Gecko/20100101 Firefox/115.0"

	viewportWidth  = 1920
	viewportHeight = 1080
)

// Config controls how a session launches Chrome.
type Config struct {
	ChromePath    string        // explicit binary path, empty to auto-detect
	Headless      bool
	UserDataDir   string        // empty for a throwaway profile
	ActionTimeout time.Duration // per page action (default: 30s)
	SlowMo        time.Duration // delay before each action, for debugging
	SettleDelay   time.Duration // extra wait after navigation (default: 500ms)
}

func (c Config) actionTimeout() time.Duration {
	if c.ActionTimeout > 0 {
		return c.ActionTimeout
	}
	return 30 * time.Second
}

func (c Config) settleDelay() time.Duration {
	if c.SettleDelay > 0 {
		return c.SettleDelay
	}
	return 500 * time.Millisecond
}

// Package backoff provides exponential backoff with optional jitter.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Policy describes an exponential backoff schedule. Zero values use defaults.
type Policy struct {
	Initial time.Duration // first delay (default: 100ms)
	Max     time.Duration // delay ceiling (default: 10s)
	Factor  float64       // growth factor per attempt (default: 2.0)
	Jitter  float64       // random fraction added/removed, 0..1 (default: 0, none)
}

// Default is the policy used when a nil policy is passed.
var Default = Policy{
	Initial: 100 * time.Millisecond,
	Max:     10 * time.Second,
	Factor:  2.0,
}

func (p Policy) withDefaults() Policy {
	if p.Initial <= 0 {
		p.Initial = Default.Initial
	}
	if p.Max <= 0 {
		p.Max = Default.Max
	}
	if p.Factor < 1 {
		p.Factor = Default.Factor
	}
	return p
}

// Delay returns the delay for the given attempt, starting at 1.
// Attempt 1 returns Initial; each later attempt multiplies by Factor,
// capped at Max. With Jitter set, the result is perturbed by up to
// +/- Jitter of its value (still capped at Max).
func (p Policy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	if attempt < 1 {
		attempt = 1
	}

	d := float64(p.Initial) * math.Pow(p.Factor, float64(attempt-1))
	if d > float64(p.Max) {
		d = float64(p.Max)
	}
	if p.Jitter > 0 {
		spread := d * p.Jitter
		d += (rand.Float64()*2 - 1) * spread
		if d < 0 {
			d = 0
		}
		if d > float64(p.Max) {
			d = float64(p.Max)
		}
	}
	return time.Duration(d)
}

package engine

import (
	"context"
	"fmt"

	"salonpost/internal/apperrors"
	"salonpost/internal/selectors"
)

// checkRobotDetection inspects the current page for challenge signatures,
// element selectors first, then visible texts, stopping at the first hit.
// A hit means the session is burned; the error is session-fatal.
func checkRobotDetection(ctx context.Context, d Driver, sig selectors.RobotDetection) error {
	for _, sel := range sig.Selectors {
		n, err := d.Count(ctx, sel)
		if err != nil {
			return apperrors.SessionFatal("guard.selector", err)
		}
		if n > 0 {
			return apperrors.SessionFatalMsg("guard", fmt.Sprintf("robot detection triggered: element %q present", sel))
		}
	}
	for _, text := range sig.Texts {
		found, err := d.ContainsText(ctx, text)
		if err != nil {
			return apperrors.SessionFatal("guard.text", err)
		}
		if found {
			return apperrors.SessionFatalMsg("guard", fmt.Sprintf("robot detection triggered: page contains %q", text))
		}
	}
	return nil
}

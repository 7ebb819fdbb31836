// Package ratelimit enforces the per-user, per-platform submission
// cooldowns. The check reads only the last recorded submission timestamp
// for the platform; recording (after the submission is durably persisted)
// and clearing (after a rejection) are the caller's responsibility.
package ratelimit

import (
	"time"

	"github.com/reviewcash/backend/internal/models"
)

// A Policy maps each platform to its minimum gap between submissions.
// Platforms absent from the map have no cooldown.
type Policy struct {
	cooldowns map[string]time.Duration
}

func NewPolicy(cooldowns map[string]time.Duration) *Policy {
	cp := make(map[string]time.Duration, len(cooldowns))
	for k, v := range cooldowns {
		cp[k] = v
	}
	return &Policy{cooldowns: cp}
}

// Cooldown returns the configured window for a platform.
func (p *Policy) Cooldown(platform string) time.Duration {
	return p.cooldowns[platform]
}

// Check reports whether the profile may submit on the platform at the
// given instant. When denied, retryAfter is the remaining wait.
func (p *Policy) Check(profile *models.UserProfile, platform string, now time.Time) (allowed bool, retryAfter time.Duration) {
	window := p.cooldowns[platform]
	if window <= 0 {
		return true, 0
	}
	last, ok := profile.LastSubmittedAt(platform)
	if !ok {
		return true, 0
	}
	eligibleAt := last.Add(window)
	if now.Before(eligibleAt) {
		return false, eligibleAt.Sub(now)
	}
	return true, 0
}

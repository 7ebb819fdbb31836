package models

import "time"

// UserProfile holds the balance and submission history for a single
// Telegram user. Profiles are created lazily on first interaction and
// never deleted. Balance is in currency minor units and never goes
// negative: withdrawal holds clamp it at zero.
type UserProfile struct {
	ID             int64                `json:"id"`
	Username       string               `json:"username"`
	Balance        int64                `json:"balance"`
	TasksDone      int                  `json:"tasks_done"`
	TotalEarned    int64                `json:"total_earned"`
	LastSubmission map[string]time.Time `json:"last_submission,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// LastSubmittedAt returns the recorded last-submission time for a platform.
func (u *UserProfile) LastSubmittedAt(platform string) (time.Time, bool) {
	if u.LastSubmission == nil {
		return time.Time{}, false
	}
	t, ok := u.LastSubmission[platform]
	return t, ok
}

package models

import "time"

// Task statuses. Deletion is soft and one-way: the row stays with the
// deleting administrator and reason recorded.
const (
	TaskStatusActive  = "active"
	TaskStatusDeleted = "deleted"
)

// Review platforms work can be submitted on.
const (
	PlatformGoogle = "google"
	PlatformYandex = "yandex"
	PlatformTwoGis = "twogis"
)

// Platforms lists every recognized review platform.
var Platforms = []string{PlatformGoogle, PlatformYandex, PlatformTwoGis}

// KnownPlatform reports whether p is one of the recognized platforms.
func KnownPlatform(p string) bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// Task is a published review assignment. Budget is the reward paid to a
// submitter whose work is approved; it is debited from the owner when the
// task is published.
type Task struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	Username      string     `json:"username"`
	Title         string     `json:"title"`
	Link          string     `json:"link"`
	Platform      string     `json:"platform"`
	Budget        int64      `json:"budget"`
	Status        string     `json:"status"`
	DeletedBy     string     `json:"deleted_by,omitempty"`
	DeletedReason string     `json:"deleted_reason,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// SecondaryAdmin is a dynamically managed administrator entry. Either the
// numeric Telegram id or the handle may be zero-valued, but not both.
type SecondaryAdmin struct {
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	AddedBy  string    `json:"added_by"`
	AddedAt  time.Time `json:"added_at"`
}

package backend

import "embed"

// MigrationsFS carries the SQL migrations so the binary can run them at
// startup without a migrations directory on disk.
//
//go:embed migrations
var MigrationsFS embed.FS

package appfs

import "embed"

// FS holds the assets shipped with the binaries: email templates & database migrations.
//
//go:embed templates migrations
var FS embed.FS

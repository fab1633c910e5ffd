package tables

import (
	"embed"
)

// FS provides embedded demo weight tables for external usage.
//
//go:embed *.yaml *.json
var FS embed.FS

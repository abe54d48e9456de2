// Package appfs exposes the app's embedded static assets.
package appfs

import "embed"

//go:embed migrations all:templates
var FS embed.FS

// Package dashboard embeds the HTML templates and styles served by the
// dashboard routes.
package dashboard

import "embed"

//go:embed templates/*.html
var Templates embed.FS

//go:embed assets/*
var Assets embed.FS

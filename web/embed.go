// Package web holds assets compiled into the binaries.
package web

import "embed"

// TemplatesFS embeds the HTML templates used for document rendering.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

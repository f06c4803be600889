// Package web holds the page templates and browser assets of the site.
package web

import "embed"

// TemplatesFS holds one file per page plus layout.html and partials.html,
// which every page is parsed together with.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS is served under /static.
//
//go:embed static/*
var StaticFS embed.FS

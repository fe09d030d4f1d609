// Package web holds the server-rendered pages.
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates parses every page; names are the file names (index.html, ...).
func Templates() (*template.Template, error) {
	return template.New("").ParseFS(templatesFS, "templates/*.html")
}

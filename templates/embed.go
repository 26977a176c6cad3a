package templates

import "embed"

// ViewsFS holds the page templates under views/, with the shared layout in
// views/layouts and includes in views/partials.
//
//go:embed views
var ViewsFS embed.FS

// StaticFS holds stylesheets, scripts and images served under /static.
//
//go:embed static
var StaticFS embed.FS

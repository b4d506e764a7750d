package templates

import "embed"

//go:embed *.html pages/*.html
var FS embed.FS

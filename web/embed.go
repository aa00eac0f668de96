package web

import "embed"

// Templates embeds HTML templates.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static embeds static assets.
//
//go:embed static/**/*
var Static embed.FS

// DocumentTemplate is the fixed document markup with literal placeholder
// tokens. It is kept outside the templates tree because its token syntax
// is not html/template.
//
//go:embed document/invoice.html
var DocumentTemplate string

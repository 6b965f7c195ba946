package httpserver

import (
	"html/template"
	"io"
	"strings"

	"git.home.luguber.info/inful/trellis/internal/bundles"
	"git.home.luguber.info/inful/trellis/internal/page"
)

var layoutTmpl = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
{{- if .Description}}
<meta name="description" content="{{.Description}}">
{{- end}}
<link rel="stylesheet" href="/styles.css">
</head>
<body>
<main class="page">
{{.Body}}
</main>
{{- range .Scripts}}
<script>{{.}}</script>
{{- end}}
</body>
</html>
`))

type layoutData struct {
	Lang        string
	Title       string
	Description string
	Body        template.HTML
	Scripts     []template.JS
}

// renderLayout wraps the rendered body in the site shell, attaching only the
// inline scripts the page actually needs.
func (s *Server) renderLayout(w io.Writer, rendered *page.RenderedPage) error {
	title := rendered.Meta.Title
	if title == "" {
		title = s.cfg.Site.PageTitle
	}
	if s.cfg.Site.PageTitleSuffix != "" {
		title += s.cfg.Site.PageTitleSuffix
	}

	lang := s.cfg.Site.Locale
	if lang == "" {
		lang = "en"
	}

	data := layoutData{
		Lang:        lang,
		Title:       title,
		Description: rendered.Meta.Description,
		Body:        template.HTML(rendered.HTML),
	}
	for _, code := range s.pageScripts(rendered) {
		data.Scripts = append(data.Scripts, template.JS(code))
	}

	return layoutTmpl.Execute(w, data)
}

// pageScripts selects bundles by inspecting the rendered HTML: pages without
// callouts, diagrams, or encrypted bodies ship no script at all.
func (s *Server) pageScripts(rendered *page.RenderedPage) []string {
	if s.bundles == nil {
		return nil
	}

	var needs []bundles.Kind
	if rendered.Meta.Encrypted {
		needs = append(needs, bundles.KindEncryptedNote)
	}
	if strings.Contains(rendered.HTML, "mermaid") {
		needs = append(needs, bundles.KindMermaid)
	}
	if strings.Contains(rendered.HTML, `class="callout`) {
		needs = append(needs, bundles.KindCallouts)
	}

	assembled := s.bundles.Scripts(needs...)
	out := make([]string, 0, len(needs))
	for _, kind := range needs {
		if code, ok := assembled[kind]; ok {
			out = append(out, code)
		}
	}
	return out
}

package render

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// calloutRe matches the opening line of an Obsidian-style callout block.
// Leading whitespace is allowed so indented callouts still match.
var calloutRe = regexp.MustCompile(`(?i)^\s*>\s*\[!(?P<kind>[\w-]+)(?:\|(?P<meta>[^\]]+))?\](?P<collapse>[+-]?)(?:\s+(?P<title>.*))?$`)

// calloutAliases maps accepted callout kinds onto their canonical class.
// Unknown kinds pass through as their own class.
var calloutAliases = map[string]string{
	"note":      "note",
	"abstract":  "abstract",
	"summary":   "abstract",
	"tldr":      "abstract",
	"info":      "info",
	"todo":      "todo",
	"tip":       "tip",
	"hint":      "tip",
	"important": "tip",
	"success":   "success",
	"check":     "success",
	"done":      "success",
	"question":  "question",
	"help":      "question",
	"faq":       "question",
	"warning":   "warning",
	"attention": "warning",
	"caution":   "warning",
	"failure":   "failure",
	"missing":   "failure",
	"fail":      "failure",
	"danger":    "danger",
	"error":     "danger",
	"bug":       "bug",
	"example":   "example",
	"quote":     "quote",
	"cite":      "quote",
}

// fragmentRenderer renders an inline markdown fragment to HTML. Callout
// bodies and titles are rendered independently of the surrounding document.
type fragmentRenderer func(src string) string

// rewriteCallouts replaces callout blockquotes with the final HTML structure
// before the main markdown pass, so the block survives as raw HTML.
func rewriteCallouts(input string, renderFragment fragmentRenderer) string {
	var out strings.Builder
	out.Grow(len(input) + 128)

	lines := strings.Split(input, "\n")
	for i := 0; i < len(lines); {
		match := calloutRe.FindStringSubmatch(lines[i])
		if match == nil {
			out.WriteString(lines[i])
			out.WriteByte('\n')
			i++
			continue
		}

		kindRaw := strings.ToLower(match[calloutRe.SubexpIndex("kind")])
		kind := canonicalCalloutKind(kindRaw)
		meta := strings.TrimSpace(match[calloutRe.SubexpIndex("meta")])
		collapse := match[calloutRe.SubexpIndex("collapse")]
		title := strings.TrimSpace(match[calloutRe.SubexpIndex("title")])
		if title == "" {
			title = capitalizeFirst(kindRaw)
		}
		i++

		// Body lines continue while they keep starting with '>'.
		var body strings.Builder
		for i < len(lines) && strings.HasPrefix(strings.TrimLeft(lines[i], " \t"), ">") {
			stripped := strings.TrimLeft(lines[i], " \t")
			stripped = strings.TrimPrefix(stripped, ">")
			stripped = strings.TrimLeft(stripped, " ")
			body.WriteString(stripped)
			body.WriteByte('\n')
			i++
		}

		collapsible := collapse == "+" || collapse == "-"
		collapsed := collapse == "-"

		classes := []string{"callout", kind}
		if collapsible {
			classes = append(classes, "is-collapsible")
		}
		if collapsed {
			classes = append(classes, "is-collapsed")
		}
		fold := "false"
		if collapsed {
			fold = "true"
		}

		// Separate the raw HTML block so markdown does not wrap it in <p>.
		if s := out.String(); s != "" && !strings.HasSuffix(s, "\n") {
			out.WriteByte('\n')
		}

		out.WriteString(`<div class="` + strings.Join(classes, " ") + `" data-callout="` + kind +
			`" data-callout-fold="` + fold + `" data-callout-metadata="` + escapeAttr(meta) + `">`)
		out.WriteString(`<div class="callout-title">`)
		out.WriteString(`<div class="callout-icon"></div>`)
		out.WriteString(`<div class="callout-title-inner">`)
		out.WriteString(renderFragment(title))
		out.WriteString(`</div>`)
		if collapsible {
			out.WriteString(`<div class="fold-callout-icon"></div>`)
		}
		out.WriteString(`</div>`)
		out.WriteString(`<div class="callout-content"><div class="callout-content-inner">`)
		out.WriteString(renderFragment(body.String()))
		out.WriteString(`</div></div></div>`)
		out.WriteString("\n\n")
	}

	return out.String()
}

func canonicalCalloutKind(kind string) string {
	if canonical, ok := calloutAliases[kind]; ok {
		return canonical
	}
	return kind
}

func capitalizeFirst(s string) string {
	if s == "" {
		return "Note"
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

func escapeAttr(s string) string { return attrEscaper.Replace(s) }

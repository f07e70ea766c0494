package parser

import (
	"regexp"
	"strings"
)

var (
	supBraceRe = regexp.MustCompile(`\^\{([^}]+)\}`)
	supRe      = regexp.MustCompile(`\^([a-zA-Z0-9+\-]+)`)
	subBraceRe = regexp.MustCompile(`_\{([^}]+)\}`)
	subRe      = regexp.MustCompile(`_([a-zA-Z0-9+\-]+)`)
	// Element symbol followed by a count, e.g. H2 or Fe3.
	chemRe     = regexp.MustCompile(`([A-Z][a-z]?)(\d+)`)
	mdImageRe  = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)
	rawImageRe = regexp.MustCompile(`(?i)(https?://\S+\.(?:png|jpg|jpeg|gif|webp))`)
)

// FormatContent renders inline exam notation as an HTML fragment:
// ^x and ^{...} become superscripts, _x and _{...} subscripts, bare
// chemical formulas like H2O get automatic subscripts, and markdown or
// raw image URLs become img tags. Newlines become <br/> unless the text
// already carries markup.
func FormatContent(text string) string {
	if text == "" {
		return ""
	}

	out := supBraceRe.ReplaceAllString(text, "<sup>$1</sup>")
	out = supRe.ReplaceAllString(out, "<sup>$1</sup>")
	out = subBraceRe.ReplaceAllString(out, "<sub>$1</sub>")
	out = subRe.ReplaceAllString(out, "<sub>$1</sub>")
	out = chemRe.ReplaceAllString(out, "$1<sub>$2</sub>")
	out = mdImageRe.ReplaceAllString(out, `<img src="$2" alt="$1"/>`)
	out = wrapRawImageURLs(out)

	if !strings.Contains(out, "<br") && !strings.Contains(out, "<img") {
		out = strings.ReplaceAll(out, "\n", "<br/>")
	}
	return out
}

// wrapRawImageURLs turns bare image links into img tags, skipping URLs
// already sitting inside a src attribute.
func wrapRawImageURLs(text string) string {
	var b strings.Builder
	last := 0
	for _, loc := range rawImageRe.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start >= 2 && text[start-1] == '"' && text[start-2] == '=' {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(`<img src="`)
		b.WriteString(text[start:end])
		b.WriteString(`" alt=""/>`)
		last = end
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

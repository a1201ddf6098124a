// Package sanitize turns the assistant's markdown replies into plain text
// for clients that cannot render markdown, such as Telegram without a
// parse mode.
package sanitize

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	blockTags     = regexp.MustCompile(`<br\s*/?>|</?p>|</?div>|</?pre>|</?h[1-6]>|</?ul>|</?ol>`)
	listItemTag   = regexp.MustCompile(`<li>`)
	extraNewlines = regexp.MustCompile(`\n\s*\n+`)
)

// Policy is safe for concurrent use.
type Policy struct {
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
}

// NewPlainTextPolicy creates a Policy that strips every tag.
func NewPlainTextPolicy() *Policy {
	return &Policy{
		policy:   bluemonday.StrictPolicy(),
		markdown: goldmark.New(),
	}
}

// PlainText renders markdown and strips the resulting HTML, keeping
// paragraph breaks and list bullets. Text that fails to render is
// returned unchanged.
func (p *Policy) PlainText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(text), &buf); err != nil {
		return text
	}

	out := listItemTag.ReplaceAllString(buf.String(), "• ")
	out = blockTags.ReplaceAllString(out, "\n")
	out = p.policy.Sanitize(out)
	out = extraNewlines.ReplaceAllString(out, "\n\n")

	return strings.TrimSpace(html.UnescapeString(out))
}

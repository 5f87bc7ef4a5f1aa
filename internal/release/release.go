// ABOUTME: Bundled release notes and markdown rendering helpers
// ABOUTME: Serves the /releaseNotes command and transcript HTML export

package release

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed notes.md
var notes string

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Notes returns the bundled release notes as markdown.
func Notes() string { return notes }

// RenderHTML converts markdown to HTML.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// NotesHTML returns the bundled release notes rendered to HTML.
func NotesHTML() (string, error) {
	return RenderHTML(notes)
}

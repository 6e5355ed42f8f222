package github

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// readmeSelectors are tried in order against the repository page. The
// article element wraps the rendered README on current GitHub layouts.
var readmeSelectors = []string{
	"article.markdown-body",
	"#readme article",
	"#readme",
}

// scrapeReadme extracts the rendered README text from the repository's
// HTML page. Repositories that hide the README from the contents API
// (unusual default branches, symlinked files) still render it here.
func (f *Fetcher) scrapeReadme(ctx context.Context, owner, name string) (Document, error) {
	u := fmt.Sprintf("%s/%s/%s", f.htmlURL, owner, name)
	status, body, err := f.get(ctx, u, "text/html")
	if err != nil {
		return Document{}, fmt.Errorf("fetching repository page for %s/%s: %w", owner, name, err)
	}
	if status == http.StatusNotFound {
		return Document{Found: false}, nil
	}
	if status != http.StatusOK {
		return Document{}, fmt.Errorf("fetching repository page for %s/%s: unexpected status %d", owner, name, status)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Document{}, fmt.Errorf("parsing repository page for %s/%s: %w", owner, name, err)
	}

	for _, sel := range readmeSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		text := normalizeText(node.Text())
		if text != "" {
			return Document{Found: true, Text: text}, nil
		}
	}
	return Document{Found: false}, nil
}

// normalizeText collapses the whitespace goquery leaves behind when
// flattening block elements.
func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// Package papers downloads a conference paper listing and extracts the title,
// link and authors of every paper on it.
package papers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultURL is the listing scraped when no URL is given.
const DefaultURL = "https://openaccess.thecvf.com/CVPR2024?day=all"

// Paper is one entry of the listing.
type Paper struct {
	Title   string
	Link    string
	Authors []string
}

// Fetch downloads the page at url and saves the raw markup to path.
func Fetch(ctx context.Context, client *http.Client, url, path string) (int64, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve the webpage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to retrieve the webpage: status code %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("failed to save %s: %w", path, err)
	}
	return n, nil
}

// Parse extracts the papers from a listing page. Each paper is a dt.ptitle holding
// the link; its authors are the query_author inputs of the forms in the following
// dd element.
func Parse(r io.Reader) ([]Paper, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var papers []Paper
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Dt && hasClass(n, "ptitle") {
			if p, ok := parsePaper(n); ok {
				papers = append(papers, p)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return papers, nil
}

func parsePaper(dt *html.Node) (Paper, bool) {
	a := find(dt, func(n *html.Node) bool { return n.DataAtom == atom.A })
	if a == nil {
		return Paper{}, false
	}
	p := Paper{
		Title: strings.TrimSpace(text(a)),
		Link:  attr(a, "href"),
	}

	dd := nextElementSibling(dt, atom.Dd)
	if dd == nil {
		return p, true
	}
	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Form {
			input := find(n, func(c *html.Node) bool {
				return c.DataAtom == atom.Input && attr(c, "name") == "query_author"
			})
			if input != nil {
				p.Authors = append(p.Authors, attr(input, "value"))
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(dd)
	return p, true
}

// Format prints papers in the listing's plain-text form.
func Format(w io.Writer, papers []Paper) error {
	for _, p := range papers {
		if _, err := fmt.Fprintf(w, "Title: %s\nLink: %s\nAuthors: %s\n\n", p.Title, p.Link, strings.Join(p.Authors, ", ")); err != nil {
			return err
		}
	}
	return nil
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

// nextElementSibling skips text and comments but stops at the first element that
// is not of the wanted kind.
func nextElementSibling(n *html.Node, want atom.Atom) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type != html.ElementNode {
			continue
		}
		if s.DataAtom == want {
			return s
		}
		if s.DataAtom == atom.Dt {
			return nil
		}
	}
	return nil
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

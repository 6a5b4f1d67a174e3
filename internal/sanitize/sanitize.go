// Package sanitize cleans the HTML a reader submits as a comment before it is
// stored and rendered unescaped on the post page.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blankText is what counts as whitespace when deciding whether a paragraph is
// empty. It includes the no-break space editors insert for "&nbsp;".
const blankText = " \t\n\r\f\v\u00a0"

// ugc is the allow-list comment HTML is reduced to: formatting, lists,
// quotes, links and images, with links restricted to safe schemes and
// marked rel="nofollow". A Policy is safe for concurrent use once built.
var ugc = bluemonday.UGCPolicy()

// maxPasses bounds the parse and render rounds Sanitize runs.
const maxPasses = 8

// Sanitize removes every <p> whose text is empty after trimming whitespace
// and every <br>, anywhere in the fragment. All other markup is kept as is.
//
// Sanitize is idempotent: Sanitize(Sanitize(s)) == Sanitize(s).
//
// FIXED POINT:
// The HTML5 parser repairs misnested markup, and a repaired tree does not
// always render to markup that parses back into the same tree. A stray
// </form> is the classic case: the first parse nests the second form, the
// second parse drops it. One pass is therefore not enough. Sanitize repeats
// parse, clean and render until the output stops changing.
func Sanitize(fragment string) string {
	out := fragment
	for range maxPasses {
		next := sanitizeOnce(out)
		if next == out {
			return out
		}
		out = next
	}
	return out
}

func sanitizeOnce(fragment string) string {
	nodes, ok := parse(fragment)
	if !ok {
		return fragment
	}
	for _, n := range nodes {
		removeWhitespace(n)
	}
	return render(dropEmpty(nodes, isWhiteNode))
}

// StripUnsafe reduces fragment to the user-generated-content allow-list.
// Elements outside it are removed (script and style with their content,
// others keeping their text), as are event handlers, style attributes and
// URLs with a scheme other than http, https or mailto.
func StripUnsafe(fragment string) string {
	return ugc.Sanitize(fragment)
}

// Clean runs StripUnsafe then Sanitize. This is what comment text goes
// through before it is stored.
func Clean(fragment string) string {
	return Sanitize(StripUnsafe(fragment))
}

// IsBlank reports whether fragment has no visible text once rendered.
func IsBlank(fragment string) bool {
	nodes, ok := parse(fragment)
	if !ok {
		return strings.Trim(fragment, blankText) == ""
	}
	for _, n := range nodes {
		if !isBlankTree(n) {
			return false
		}
	}
	return true
}

// parse reads fragment as the children of a <body> element.
func parse(fragment string) ([]*html.Node, bool) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return nil, false
	}
	return nodes, true
}

func render(nodes []*html.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		// Rendering into a strings.Builder cannot fail.
		_ = html.Render(&b, n)
	}
	return b.String()
}

// dropEmpty filters top-level nodes. ParseFragment returns them without a
// parent, so they cannot be removed with RemoveChild.
func dropEmpty(nodes []*html.Node, drop func(*html.Node) bool) []*html.Node {
	kept := nodes[:0]
	for _, n := range nodes {
		if !drop(n) {
			kept = append(kept, n)
		}
	}
	return kept
}

func isWhiteNode(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Br:
		return true
	case atom.P:
		return strings.Trim(textContent(n), blankText) == ""
	}
	return false
}

// removeWhitespace walks the tree bottom-up so a paragraph that only held a
// <br> is judged after the <br> is gone.
func removeWhitespace(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		removeWhitespace(c)
		if isWhiteNode(c) {
			n.RemoveChild(c)
		}
		c = next
	}
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

// isBlankTree treats images and other embedded content as visible.
func isBlankTree(n *html.Node) bool {
	switch n.Type {
	case html.TextNode:
		return strings.Trim(n.Data, blankText) == ""
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Img, atom.Video, atom.Audio, atom.Picture, atom.Svg:
			return false
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !isBlankTree(c) {
			return false
		}
	}
	return true
}

package reassemble

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// findElement returns the first descendant (or n itself) with the given
// atom, pre-order.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// ensureHead returns the document's <head>, creating and linking an empty
// one as the <html> element's first child if none exists.
func ensureHead(htmlEl *html.Node) *html.Node {
	if head := findElement(htmlEl, atom.Head); head != nil {
		return head
	}
	head := &html.Node{Type: html.ElementNode, Data: "head", DataAtom: atom.Head}
	htmlEl.InsertBefore(head, htmlEl.FirstChild)
	return head
}

// markDirRecursive sets the dir attribute on every element node in the
// subtree rooted at n, per spec §4.5 step 4's "mark each element node".
func markDirRecursive(n *html.Node, dir string) {
	if n.Type == html.ElementNode {
		setAttr(n, "dir", dir)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		markDirRecursive(c, dir)
	}
}

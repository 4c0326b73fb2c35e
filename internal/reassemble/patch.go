package reassemble

import "golang.org/x/net/html"

// patch is one replacement the Reassembler applies after a full walk, not
// during it — spec §9's "Deep tree mutation" note calls for building the
// plan first and applying it in a second pass so the walk never observes
// a tree it is concurrently rewriting.
type patch struct {
	insertBefore *html.Node // first captured node of the batch
	insert       []*html.Node
	remove       []*html.Node // every captured node, each detached via its own parent
}

// apply inserts the replacement nodes before the first captured node, then
// detaches every captured node individually through its own current parent
// pointer, per spec §4.5 step 4.
func (p patch) apply() {
	parent := p.insertBefore.Parent
	for _, n := range p.insert {
		parent.InsertBefore(n, p.insertBefore)
	}
	for _, n := range p.remove {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

func applyPatches(patches []patch) {
	for _, p := range patches {
		p.apply()
	}
}

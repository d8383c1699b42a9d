package text

import (
	"io"
	"strings"
	"unicode/utf8"
)

// A trie uses runes rather than characters for indexing, therefore its child
// key values are integers.
type trie struct {
	leaf     bool           // whether the node is a leaf (the end of an input string).
	value    any            // the value associated with the string up to this leaf node.
	children map[rune]*trie // a map of sub-tries for each child rune value.
}

// newTrie creates and returns a new Trie instance.
func newTrie() *trie {
	t := new(trie)
	t.leaf = false
	t.value = nil
	t.children = make(map[rune]*trie)
	return t
}

// Internal function: adds items to the trie, reading runes from a
// strings.Reader.  It returns the leaf node at which the addition ends.
func (p *trie) addRunes(r io.RuneReader) *trie {
	sym, _, err := r.ReadRune()
	if err != nil {
		p.leaf = true
		return p
	}

	n := p.children[sym]
	if n == nil {
		n = newTrie()
		p.children[sym] = n
	}

	// recurse to store sub-runes below the new node
	return n.addRunes(r)
}

// addValue adds a string to the trie, with an associated value.  If the string
// is already present, only the value is updated.
func (p *trie) addValue(s string, v any) {
	if len(s) == 0 {
		return
	}

	// append the runes to the trie
	leaf := p.addRunes(strings.NewReader(s))
	leaf.value = v
}

// size counts all the nodes of the entire Trie, NOT including the root node.
func (p *trie) size() (sz int) {
	sz = len(p.children)

	for _, child := range p.children {
		sz += child.size()
	}

	return
}

// allSubstringsAndValues returns all anchored substrings of the given string
// within the Trie, with a matching set of their associated values.
func (p *trie) allSubstringsAndValues(s string) ([]string, []any) {

	sv := []string{}
	vv := []any{}

	for pos, rune := range s {
		child, ok := p.children[rune]
		if !ok {
			// return whatever we have so far
			break
		}

		// if this is a leaf node, add the string so far and its value
		if child.leaf {
			sv = append(sv, s[0:pos+utf8.RuneLen(rune)])
			vv = append(vv, child.value)
		}
		p = child
	}
	return sv, vv
}

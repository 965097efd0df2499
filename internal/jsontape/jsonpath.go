package jsontape

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// SelectorKind discriminates a compiled JSONPath selector.
type SelectorKind uint8

const (
	SelectorWildcard SelectorKind = iota
	SelectorStringIdentifier
	SelectorNumericIdentifier
)

// Selector is one step of a compiled path, applied left-to-right from an
// implicit root (§4.2).
type Selector struct {
	Kind  SelectorKind
	Name  string
	Index int
}

// Path is a compiled JSONPath expression: a sequence of selectors.
type Path struct {
	raw       string
	selectors []Selector
}

func (p *Path) String() string { return p.raw }

// CouldReturnMany is true iff any selector is Wildcard — callers that
// consume a path (e.g. json_extract) must wrap results in a JSON array
// in that case and otherwise return the singular value or null.
func (p *Path) CouldReturnMany() bool {
	for _, s := range p.selectors {
		if s.Kind == SelectorWildcard {
			return true
		}
	}
	return false
}

// Compile parses a JSONPath expression of the form "$.foo.*.0". An
// unparsable expression is an error; callers constructing a JsonPath Datum
// from text must turn a Compile failure into Null (§3).
func Compile(text string) (*Path, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "$") {
		return nil, errors.Newf("jsonpath: expression must start with $: %q", text)
	}
	rest := text[1:]
	var selectors []Selector
	for len(rest) > 0 {
		if rest[0] != '.' {
			return nil, errors.Newf("jsonpath: expected '.' in %q", text)
		}
		rest = rest[1:]
		end := strings.IndexByte(rest, '.')
		var tok string
		if end == -1 {
			tok, rest = rest, ""
		} else {
			tok, rest = rest[:end], rest[end:]
		}
		if tok == "" {
			return nil, errors.Newf("jsonpath: empty selector in %q", text)
		}
		switch {
		case tok == "*":
			selectors = append(selectors, Selector{Kind: SelectorWildcard})
		default:
			if n, err := strconv.Atoi(tok); err == nil {
				selectors = append(selectors, Selector{Kind: SelectorNumericIdentifier, Index: n, Name: tok})
			} else {
				selectors = append(selectors, Selector{Kind: SelectorStringIdentifier, Name: tok})
			}
		}
	}
	return &Path{raw: text, selectors: selectors}, nil
}

// MatchFunc is invoked once per matching node during a streaming Evaluate.
type MatchFunc func(Node)

// Evaluate applies p to root, invoking fn once per match in document order.
func (p *Path) Evaluate(root Node, fn MatchFunc) {
	evalStep(root, p.selectors, fn)
}

// EvaluateSingle stops at the first match and reports whether one was
// found; used where a single value (not a stream) is required.
func (p *Path) EvaluateSingle(root Node) (Node, bool) {
	var found Node
	ok := false
	p.Evaluate(root, func(n Node) {
		if !ok {
			found = n
			ok = true
		}
	})
	return found, ok
}

func evalStep(n Node, selectors []Selector, fn MatchFunc) {
	if len(selectors) == 0 {
		fn(n)
		return
	}
	sel, rest := selectors[0], selectors[1:]
	switch sel.Kind {
	case SelectorWildcard:
		if n.IsArray() {
			count, _ := n.ArrayLen()
			for i := 0; i < count; i++ {
				child, ok := n.Index(i)
				if ok {
					evalStep(child, rest, fn)
				}
			}
		} else if n.IsObject() {
			count, offset := n.objectHeader()
			pos := offset
			for i := 0; i < count; i++ {
				keyNode := Node{bytes: n.bytes[pos:]}
				pos += keyNode.size()
				valNode := Node{bytes: n.bytes[pos:]}
				pos += valNode.size()
				evalStep(valNode, rest, fn)
			}
		}
	case SelectorStringIdentifier:
		if n.IsObject() {
			if child, ok := n.Field(sel.Name); ok {
				evalStep(child, rest, fn)
			}
		}
	case SelectorNumericIdentifier:
		if n.IsArray() {
			if child, ok := n.Index(sel.Index); ok {
				evalStep(child, rest, fn)
			}
		} else if n.IsObject() {
			if child, ok := n.Field(sel.Name); ok {
				evalStep(child, rest, fn)
			}
		}
	}
}

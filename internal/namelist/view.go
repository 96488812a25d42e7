package namelist

import (
	"slices"
	"strings"
)

// Parameter is one NAME[(dims)] = values... assignment inside a group.
type Parameter struct {
	Name   string
	Dims   []LocatedToken
	Values []LocatedToken

	// token indices within the record: [start, end) runs from the name to
	// the last value (or the '=' when there are no values)
	start, end int
}

// View is a read-only projection of a structured record's parameters. It is
// only valid until the record's tokens change.
type View struct {
	Group  string
	Params []Parameter
	byName map[string]int
}

// Get returns the last assignment of name, compared case-insensitively.
func (v View) Get(name string) (Parameter, bool) {
	i, ok := v.byName[strings.ToUpper(name)]
	if !ok {
		return Parameter{}, false
	}
	return v.Params[i], true
}

// View scans the record's tokens into parameters. A parameter header is an
// identifier, optionally followed by a parenthesised subscript, followed by
// '='. Values run until the next header or the closing '/'.
func (r *Record) View() (View, error) {
	if r.Kind != Structured {
		span := r.Span()
		return View{}, Errorf(KindShape, &span, "record is not a namelist group")
	}
	v := View{Group: r.GroupName(), byName: make(map[string]int)}
	closeIdx := len(r.Tokens) - 1
	cur := -1
	for i := 2; i < closeIdx; {
		t := r.Tokens[i]
		if t.Trivia() || t.Kind == Comma {
			i++
			continue
		}
		if h, ok := r.header(i, closeIdx); ok {
			v.Params = append(v.Params, Parameter{
				Name:  t.Text,
				Dims:  h.dims,
				start: i,
				end:   h.equals + 1,
			})
			cur = len(v.Params) - 1
			v.byName[strings.ToUpper(t.Text)] = cur
			i = h.equals + 1
			continue
		}
		if cur >= 0 {
			v.Params[cur].Values = append(v.Params[cur].Values, t)
			v.Params[cur].end = i + 1
		}
		i++
	}
	return v, nil
}

type header struct {
	dims   []LocatedToken
	equals int
}

// header checks whether tokens[i:] starts a parameter header. Anything that
// is not a header is a value of the preceding parameter.
func (r *Record) header(i, closeIdx int) (header, bool) {
	if r.Tokens[i].Kind != Ident {
		return header{}, false
	}
	var h header
	j := r.nextSignificant(i+1, closeIdx)
	if j < closeIdx && r.Tokens[j].Kind == LParen {
		k := j + 1
		for ; k < closeIdx && r.Tokens[k].Kind != RParen; k++ {
			if !r.Tokens[k].Trivia() {
				h.dims = append(h.dims, r.Tokens[k])
			}
		}
		if k >= closeIdx {
			return header{}, false
		}
		j = r.nextSignificant(k+1, closeIdx)
	}
	if j >= closeIdx || r.Tokens[j].Kind != Equals {
		return header{}, false
	}
	h.equals = j
	return h, true
}

func (r *Record) nextSignificant(i, limit int) int {
	for i < limit && r.Tokens[i].Trivia() {
		i++
	}
	return i
}

// RemoveParameter deletes the last assignment of name. A directly trailing
// comma goes with it, as does the whitespace before it when that whitespace
// stays on one line and is not needed to separate neighbouring tokens. It
// reports whether anything was removed.
func (r *Record) RemoveParameter(name string) bool {
	v, err := r.View()
	if err != nil {
		return false
	}
	p, ok := v.Get(name)
	if !ok {
		return false
	}
	lo, hi := p.start, p.end
	if hi < len(r.Tokens)-1 && r.Tokens[hi].Kind == Comma {
		hi++
	}
	if prev := r.Tokens[lo-1]; prev.Kind == Whitespace && !strings.Contains(prev.Text, "\n") {
		switch r.Tokens[hi].Kind {
		case Whitespace, Comment, GroupClose:
			lo--
		}
	}
	r.Tokens = slices.Concat(r.Tokens[:lo], r.Tokens[hi:])
	return true
}

// AppendParameter adds " name=value" right after the last significant token
// before the closing '/', so trailing comments and layout stay where they
// were. Added tokens carry a zero-length span at the insertion point.
func (r *Record) AppendParameter(name string, value Token) {
	if r.Kind != Structured {
		return
	}
	anchor := len(r.Tokens) - 2
	for anchor > 1 && r.Tokens[anchor].Trivia() {
		anchor--
	}
	a := r.Tokens[anchor].Span
	at := Span{Line: a.Line, Column: a.Column + a.Length, Offset: a.End()}
	added := []LocatedToken{
		{Token: Token{Kind: Whitespace, Text: " "}, Span: at},
		{Token: Token{Kind: Ident, Text: name}, Span: at},
		{Token: Token{Kind: Equals, Text: "="}, Span: at},
		{Token: value, Span: at},
	}
	r.Tokens = slices.Concat(r.Tokens[:anchor+1], added, r.Tokens[anchor+1:])
}

package namelist

import (
	"io"
	"strings"
)

// RecordKind tells structured records from opaque ones.
type RecordKind int

const (
	Opaque RecordKind = iota
	Structured
)

func (k RecordKind) String() string {
	if k == Structured {
		return "structured"
	}
	return "opaque"
}

// Record is one namelist group (&NAME ... /) or a run of tokens that does not
// form one. Tokens is the single source of truth for the record's content.
type Record struct {
	Kind   RecordKind
	Tokens []LocatedToken
}

// Parse tokenizes src and segments it into records.
func Parse(src []byte) ([]Record, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return Segment(tokens), nil
}

// Segment groups tokens into records. A structured record is a '&' directly
// followed by an identifier, running up to the first '/' with no other '&' in
// between. Everything else is collected into opaque records. Segment never
// fails and never drops a token.
func Segment(tokens []LocatedToken) []Record {
	var (
		records []Record
		pending []LocatedToken
	)
	flush := func() {
		if len(pending) > 0 {
			records = append(records, Record{Kind: Opaque, Tokens: pending})
			pending = nil
		}
	}
	for i := 0; i < len(tokens); {
		if end, ok := groupEnd(tokens, i); ok {
			flush()
			records = append(records, Record{Kind: Structured, Tokens: tokens[i : end+1 : end+1]})
			i = end + 1
			continue
		}
		pending = append(pending, tokens[i])
		i++
	}
	flush()
	return records
}

// groupEnd returns the index of the '/' closing a group that opens at i.
func groupEnd(tokens []LocatedToken, i int) (int, bool) {
	if tokens[i].Kind != GroupOpen || i+1 >= len(tokens) || tokens[i+1].Kind != Ident {
		return 0, false
	}
	for j := i + 2; j < len(tokens); j++ {
		switch tokens[j].Kind {
		case GroupClose:
			return j, true
		case GroupOpen:
			return 0, false
		}
	}
	return 0, false
}

// GroupName returns the group identifier of a structured record, or "".
func (r *Record) GroupName() string {
	if r.Kind != Structured || len(r.Tokens) < 2 {
		return ""
	}
	return r.Tokens[1].Text
}

// IsGroup reports whether r is a structured record named name, compared
// case-insensitively.
func (r *Record) IsGroup(name string) bool {
	return r.Kind == Structured && strings.EqualFold(r.GroupName(), name)
}

// Span covers the record's original text. Synthetic tokens do not extend it.
func (r *Record) Span() Span {
	if len(r.Tokens) == 0 {
		return Span{}
	}
	first := r.Tokens[0].Span
	end := first.End()
	for _, t := range r.Tokens {
		if t.Span.End() > end {
			end = t.Span.End()
		}
	}
	first.Length = end - first.Offset
	return first
}

func (r *Record) String() string {
	var b strings.Builder
	for _, t := range r.Tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

// Serialize writes every record's token text to w in order.
func Serialize(w io.Writer, records []Record) error {
	for i := range records {
		if _, err := io.WriteString(w, records[i].String()); err != nil {
			return err
		}
	}
	return nil
}

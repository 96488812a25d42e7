// Package namelist implements a lossless tokenizer and record model for
// namelist-style input files.
package namelist

import "fmt"

// Kind classifies a token.
type Kind int

const (
	Whitespace Kind = iota
	Comment         // ! to end of line, inside a group
	Text            // free text outside any group
	Ident
	Number
	String
	Logical // .TRUE., .F., ...
	GroupOpen
	GroupClose
	Equals
	Comma
	LParen
	RParen
	Colon
	Other
)

var kindNames = [...]string{
	Whitespace: "whitespace",
	Comment:    "comment",
	Text:       "text",
	Ident:      "identifier",
	Number:     "number",
	String:     "string",
	Logical:    "logical",
	GroupOpen:  "&",
	GroupClose: "/",
	Equals:     "=",
	Comma:      ",",
	LParen:     "(",
	RParen:     ")",
	Colon:      ":",
	Other:      "other",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is a classified lexical unit. Numbers keep their source text.
type Token struct {
	Kind Kind
	Text string
}

// Trivia reports whether the token carries no meaning inside a group.
func (t Token) Trivia() bool {
	return t.Kind == Whitespace || t.Kind == Comment || t.Kind == Text
}

// Span locates text in the source. Line and Column are 0-based; Column counts
// bytes.
type Span struct {
	Line   int
	Column int
	Offset int
	Length int
}

// End returns the byte offset just past the span.
func (s Span) End() int { return s.Offset + s.Length }

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Line+1, s.Column+1)
}

// LocatedToken is a token together with where it was read from.
type LocatedToken struct {
	Token
	Span Span
}

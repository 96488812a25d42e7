package namelist

import (
	"bytes"
	"unicode/utf8"
)

// Tokenize splits src into located tokens. The tokens cover src exactly:
// concatenating their text reproduces the input.
//
// Outside a group (before "&NAME" or after '/') the input is free text and is
// emitted as Whitespace and Text runs. Inside a group it is lexed as namelist
// syntax. The only failure is a quoted string that is not closed on its line.
func Tokenize(src []byte) ([]LocatedToken, error) {
	s := &scanner{src: src}
	for s.pos < len(s.src) {
		var err error
		if s.inGroup {
			err = s.groupToken()
		} else {
			s.textToken()
		}
		if err != nil {
			return nil, err
		}
	}
	return s.tokens, nil
}

type scanner struct {
	src     []byte
	pos     int
	line    int
	col     int
	inGroup bool
	tokens  []LocatedToken
}

func (s *scanner) peek(off int) byte {
	if s.pos+off < len(s.src) {
		return s.src[s.pos+off]
	}
	return 0
}

// emit records src[start:s.pos] as a token whose first byte is at the
// current line/column, then advances line/column past it.
func (s *scanner) emit(kind Kind, start int) {
	text := s.src[start:s.pos]
	s.tokens = append(s.tokens, LocatedToken{
		Token: Token{Kind: kind, Text: string(text)},
		Span:  Span{Line: s.line, Column: s.col, Offset: start, Length: len(text)},
	})
	if n := bytes.Count(text, []byte{'\n'}); n > 0 {
		s.line += n
		s.col = len(text) - bytes.LastIndexByte(text, '\n') - 1
	} else {
		s.col += len(text)
	}
}

func (s *scanner) textToken() {
	start := s.pos
	c := s.src[s.pos]
	switch {
	case s.opensGroup():
		s.pos++
		s.inGroup = true
		s.emit(GroupOpen, start)
	case isSpace(c):
		s.skipSpace()
		s.emit(Whitespace, start)
	default:
		s.pos++
		for s.pos < len(s.src) && !isSpace(s.src[s.pos]) && !s.opensGroup() {
			s.pos++
		}
		s.emit(Text, start)
	}
}

// opensGroup reports whether the current byte is a '&' followed by the start
// of a group name. A lone '&' in free text stays text.
func (s *scanner) opensGroup() bool {
	next := s.peek(1)
	return s.src[s.pos] == '&' && (isLetter(next) || next == '_')
}

func (s *scanner) groupToken() error {
	start := s.pos
	c := s.src[s.pos]
	switch {
	case isSpace(c):
		s.skipSpace()
		s.emit(Whitespace, start)
	case c == '!':
		for s.pos < len(s.src) && s.src[s.pos] != '\n' {
			s.pos++
		}
		s.emit(Comment, start)
	case c == '\'' || c == '"':
		return s.quoted(c)
	case isLetter(c) || c == '_':
		for s.pos < len(s.src) && (isLetter(s.src[s.pos]) || isDigit(s.src[s.pos]) || s.src[s.pos] == '_') {
			s.pos++
		}
		s.emit(Ident, start)
	case startsNumber(c, s.peek(1), s.peek(2)):
		s.number()
		s.emit(Number, start)
	case c == '.' && s.logical():
		s.emit(Logical, start)
	default:
		s.pos++
		kind := Other
		switch c {
		case '&':
			kind = GroupOpen
		case '/':
			kind = GroupClose
			s.inGroup = false
		case '=':
			kind = Equals
		case ',':
			kind = Comma
		case '(':
			kind = LParen
		case ')':
			kind = RParen
		case ':':
			kind = Colon
		default:
			if c >= utf8.RuneSelf {
				if _, size := utf8.DecodeRune(s.src[start:]); size > 1 {
					s.pos = start + size
				}
			}
		}
		s.emit(kind, start)
	}
	return nil
}

// quoted consumes a string delimited by q. A doubled delimiter is an escaped
// quote. Strings may not span lines.
func (s *scanner) quoted(q byte) error {
	start := s.pos
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case q:
			if s.peek(1) == q {
				s.pos += 2
				continue
			}
			s.pos++
			s.emit(String, start)
			return nil
		case '\n':
			return s.unterminated(start)
		}
		s.pos++
	}
	return s.unterminated(start)
}

func (s *scanner) unterminated(start int) error {
	span := Span{Line: s.line, Column: s.col, Offset: start, Length: s.pos - start}
	return Errorf(KindTokenize, &span, "unterminated string")
}

// number consumes [+-]digits[.digits][(e|d)[+-]digits]. The caller has
// checked that a digit is reachable.
func (s *scanner) number() {
	if c := s.src[s.pos]; c == '+' || c == '-' {
		s.pos++
	}
	s.digits()
	if s.peek(0) == '.' && !s.looksLogicalAt(s.pos) {
		s.pos++
		s.digits()
	}
	switch s.peek(0) {
	case 'e', 'E', 'd', 'D':
		off := 1
		if c := s.peek(1); c == '+' || c == '-' {
			off = 2
		}
		if isDigit(s.peek(off)) {
			s.pos += off
			s.digits()
		}
	}
}

func (s *scanner) digits() {
	for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
		s.pos++
	}
}

// logical consumes .WORD. if present at the current position.
func (s *scanner) logical() bool {
	if !s.looksLogicalAt(s.pos) {
		return false
	}
	s.pos++
	for isLetter(s.src[s.pos]) {
		s.pos++
	}
	s.pos++
	return true
}

func (s *scanner) looksLogicalAt(i int) bool {
	if i >= len(s.src) || s.src[i] != '.' {
		return false
	}
	j := i + 1
	for j < len(s.src) && isLetter(s.src[j]) {
		j++
	}
	return j > i+1 && j < len(s.src) && s.src[j] == '.'
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) && isSpace(s.src[s.pos]) {
		s.pos++
	}
}

func startsNumber(c, next, after byte) bool {
	switch {
	case isDigit(c):
		return true
	case c == '.':
		return isDigit(next)
	case c == '+' || c == '-':
		return isDigit(next) || (next == '.' && isDigit(after))
	}
	return false
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

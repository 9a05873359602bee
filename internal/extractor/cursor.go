package extractor

import (
	"sort"
	"strings"
)

// document is one file prepared for scanning: the raw text, its mask, an
// ASCII upper-cased copy of the mask for keyword search and the offsets of
// every newline.
type document struct {
	raw      string
	masked   string
	upper    string
	newlines []int
}

func newDocument(raw, masked string) *document {
	d := &document{raw: raw, masked: masked, upper: asciiUpper(masked)}
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\n' {
			d.newlines = append(d.newlines, i)
		}
	}
	return d
}

// line returns the 1-based line number of a byte offset.
func (d *document) line(offset int) int {
	return sort.SearchInts(d.newlines, offset) + 1
}

// words returns the offsets of every word-bounded occurrence of word
// (upper case) in the masked text.
func (d *document) words(word string) []int {
	var found []int
	from := 0
	for {
		i := strings.Index(d.upper[from:], word)
		if i < 0 {
			return found
		}
		at := from + i
		end := at + len(word)
		if (at == 0 || !isIdentByte(d.upper[at-1])) && (end == len(d.upper) || !isIdentByte(d.upper[end])) {
			found = append(found, at)
		}
		from = end
	}
}

func (d *document) cursorAt(pos int) *cursor {
	return &cursor{src: d.masked, upper: d.upper, pos: pos}
}

// cursor is a position in masked text with small recursive-descent helpers.
// Every helper skips leading whitespace and leaves pos untouched when it
// does not match.
type cursor struct {
	src   string
	upper string
	pos   int
}

func (c *cursor) skipSpace() {
	for c.pos < len(c.src) && isSpace(c.src[c.pos]) {
		c.pos++
	}
}

// keyword consumes kw (upper case) when it is the next whole word.
func (c *cursor) keyword(kw string) bool {
	save := c.pos
	c.skipSpace()
	end := c.pos + len(kw)
	if end <= len(c.upper) && c.upper[c.pos:end] == kw && (end == len(c.upper) || !isIdentByte(c.upper[end])) {
		c.pos = end
		return true
	}
	c.pos = save
	return false
}

// keywords consumes the whole sequence or nothing.
func (c *cursor) keywords(kws ...string) bool {
	save := c.pos
	for _, kw := range kws {
		if !c.keyword(kw) {
			c.pos = save
			return false
		}
	}
	return true
}

// word consumes the next bare word and returns it upper-cased.
func (c *cursor) word() (string, bool) {
	save := c.pos
	c.skipSpace()
	start := c.pos
	for c.pos < len(c.src) && isIdentByte(c.src[c.pos]) {
		c.pos++
	}
	if c.pos == start {
		c.pos = save
		return "", false
	}
	return c.upper[start:c.pos], true
}

// ident consumes a possibly qualified identifier such as db.schema."Name"
// or $VAR and returns its offsets.
func (c *cursor) ident() (start, end int, ok bool) {
	save := c.pos
	c.skipSpace()
	start = c.pos
	for {
		switch {
		case c.pos < len(c.src) && c.src[c.pos] == '"':
			endQuote := strings.IndexByte(c.src[c.pos+1:], '"')
			if endQuote < 0 {
				c.pos = save
				return 0, 0, false
			}
			c.pos += endQuote + 2
		case c.pos < len(c.src) && isIdentByte(c.src[c.pos]):
			for c.pos < len(c.src) && isIdentByte(c.src[c.pos]) {
				c.pos++
			}
		default:
			c.pos = save
			return 0, 0, false
		}
		if c.pos < len(c.src) && c.src[c.pos] == '.' {
			c.pos++
			continue
		}
		return start, c.pos, true
	}
}

// group consumes a balanced parenthesis group and returns the offsets of
// its contents. Parentheses inside double-quoted identifiers do not count;
// single-quoted contents are already blank in the mask.
func (c *cursor) group() (start, end int, ok bool) {
	save := c.pos
	c.skipSpace()
	if c.pos >= len(c.src) || c.src[c.pos] != '(' {
		c.pos = save
		return 0, 0, false
	}
	depth := 0
	inQuote := false
	for i := c.pos; i < len(c.src); i++ {
		ch := c.src[i]
		if inQuote {
			if ch == '"' {
				inQuote = false
			}
			continue
		}
		switch ch {
		case '"':
			inQuote = true
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				start = c.pos + 1
				c.pos = i + 1
				return start, i, true
			}
		}
	}
	c.pos = save
	return 0, 0, false
}

// BaseName returns the last part of a qualified name without quotes,
// upper-cased: db.schema."Parse_Rdf" gives PARSE_RDF.
func BaseName(name string) string {
	if i := lastDot(name); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToUpper(strings.Trim(name, `"`))
}

// lastDot finds the last '.' outside double quotes.
func lastDot(name string) int {
	last := -1
	inQuote := false
	for i := 0; i < len(name); i++ {
		switch {
		case name[i] == '"':
			inQuote = !inQuote
		case name[i] == '.' && !inQuote:
			last = i
		}
	}
	return last
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '$' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

func asciiUpper(s string) string {
	b := []byte(s)
	for i, ch := range b {
		if 'a' <= ch && ch <= 'z' {
			b[i] = ch - ('a' - 'A')
		}
	}
	return string(b)
}

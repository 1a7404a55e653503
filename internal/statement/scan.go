package statement

import (
	"strconv"
	"strings"
)

// text is a statement plus a per-byte view of which bytes are SQL code
// (outside string literals, quoted identifiers and comments) and at what
// parenthesis depth they sit.
type text struct {
	src   string
	code  []bool
	depth []int
}

func scan(src string) *text {
	t := &text{
		src:   src,
		code:  make([]bool, len(src)),
		depth: make([]int, len(src)),
	}

	depth := 0
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := closeQuote(src, i, c)
			for j := i; j < end; j++ {
				t.depth[j] = depth
			}
			i = end
			continue
		case c == '[':
			end := strings.IndexByte(src[i:], ']')
			if end < 0 {
				end = len(src) - i - 1
			}
			for j := i; j <= i+end; j++ {
				t.depth[j] = depth
			}
			i += end + 1
			continue
		case c == '-' && i+1 < len(src) && src[i+1] == '-':
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src) - i
			}
			i += end
			continue
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				i = len(src)
			} else {
				i += end + 4
			}
			continue
		case c == '(':
			t.code[i] = true
			t.depth[i] = depth
			depth++
			i++
			continue
		case c == ')':
			if depth > 0 {
				depth--
			}
		}
		t.code[i] = true
		t.depth[i] = depth
		i++
	}
	return t
}

// closeQuote returns the index just past the quoted run that opens at i.
// A doubled quote character inside the run is an escaped quote.
func closeQuote(src string, i int, q byte) int {
	for j := i + 1; j < len(src); j++ {
		if src[j] != q {
			continue
		}
		if j+1 < len(src) && src[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(src)
}

// isWordByte reports whether c can appear in an unquoted identifier. Every
// byte of a multi-byte UTF-8 sequence counts, so non-ASCII names stay whole.
func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// keyword finds kw as a whole word in code at parenthesis depth 0, starting
// at from. Matching is case-insensitive. Returns -1 when absent.
func (t *text) keyword(kw string, from int) int {
	n := len(kw)
	for i := from; i+n <= len(t.src); i++ {
		if !t.code[i] || t.depth[i] != 0 {
			continue
		}
		if i > 0 && t.code[i-1] && isWordByte(t.src[i-1]) {
			continue
		}
		if !strings.EqualFold(t.src[i:i+n], kw) {
			continue
		}
		if i+n < len(t.src) && isWordByte(t.src[i+n]) {
			continue
		}
		return i
	}
	return -1
}

// firstKeyword returns the position of the earliest of kws at or after from,
// or len(src) when none occurs.
func (t *text) firstKeyword(from int, kws ...string) int {
	end := len(t.src)
	for _, kw := range kws {
		if i := t.keyword(kw, from); i >= 0 && i < end {
			end = i
		}
	}
	return end
}

func (t *text) skipSpace(i int) int {
	for i < len(t.src) && isSpace(t.src[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// ident reads a possibly schema-qualified identifier starting at i and
// returns its last segment, unquoted, and the index just past it.
func (t *text) ident(i int) (string, int, bool) {
	i = t.skipSpace(i)
	var name string
	for {
		part, end, ok := t.identPart(i)
		if !ok {
			return "", i, name != ""
		}
		name, i = part, end
		if i < len(t.src) && t.src[i] == '.' {
			i++
			continue
		}
		return name, i, true
	}
}

func (t *text) identPart(i int) (string, int, bool) {
	if i >= len(t.src) {
		return "", i, false
	}
	switch c := t.src[i]; c {
	case '"', '`':
		end := closeQuote(t.src, i, c)
		return unquote(t.src[i:end]), end, end-i > 2
	case '[':
		end := strings.IndexByte(t.src[i:], ']')
		if end < 0 {
			return "", i, false
		}
		return t.src[i+1 : i+end], i + end + 1, end > 1
	}
	j := i
	for j < len(t.src) && isWordByte(t.src[j]) {
		j++
	}
	return t.src[i:j], j, j > i
}

// matching returns the index of the ')' closing the '(' at open.
func (t *text) matching(open int) int {
	want := t.depth[open]
	for i := open + 1; i < len(t.src); i++ {
		if t.code[i] && t.src[i] == ')' && t.depth[i] == want {
			return i
		}
	}
	return -1
}

// split cuts src[from:to] at code commas sitting at the given depth.
func (t *text) split(from, to, depth int) []string {
	var parts []string
	start := from
	for i := from; i < to; i++ {
		if t.code[i] && t.src[i] == ',' && t.depth[i] == depth {
			parts = append(parts, t.src[start:i])
			start = i + 1
		}
	}
	return append(parts, t.src[start:to])
}

// unquote strips one level of identifier quoting.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	switch {
	case s[0] == '"' && s[len(s)-1] == '"':
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	case s[0] == '`' && s[len(s)-1] == '`':
		return strings.ReplaceAll(s[1:len(s)-1], "``", "`")
	case s[0] == '[' && s[len(s)-1] == ']':
		return s[1 : len(s)-1]
	}
	return s
}

// placeholder is one bind marker found in code.
type placeholder struct {
	start, end int
	// index is the zero-based position of the bound argument.
	index int
}

// placeholders lists the bind markers in src[from:to] in encounter order.
// Anonymous ? markers are numbered by their position in the whole
// statement; ?NNN and $N carry their own number.
func (t *text) placeholders(from, to int) []placeholder {
	var out []placeholder
	ordinal := 0
	for i := 0; i < to; i++ {
		if !t.code[i] {
			continue
		}
		c := t.src[i]
		if c != '?' && c != '$' {
			continue
		}
		if c == '$' && i > 0 && t.code[i-1] && isWordByte(t.src[i-1]) {
			continue
		}
		j := i + 1
		for j < len(t.src) && '0' <= t.src[j] && t.src[j] <= '9' {
			j++
		}
		var index int
		switch {
		case j > i+1:
			n, err := strconv.Atoi(t.src[i+1 : j])
			if err != nil || n < 1 {
				continue
			}
			index = n - 1
			if c == '?' && n > ordinal {
				ordinal = n
			}
		case c == '?':
			index = ordinal
			ordinal++
		default:
			continue
		}
		if i >= from {
			out = append(out, placeholder{start: i, end: j, index: index})
		}
		i = j - 1
	}
	return out
}

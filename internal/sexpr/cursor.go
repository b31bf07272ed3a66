// Package sexpr implements the zero-copy, single-pass cursor over a
// parenthesized symbolic-expression message. Grounded on
// original_source/src/Environment/Environment.hpp's nested Parsing class,
// translated from a char* pointer pair to a []byte begin/end cursor.
package sexpr

import (
	"fmt"
	"strconv"
)

// Cursor is a read-only view into a frame, advanced as tags are consumed.
// It never copies the underlying bytes and never reads past End.
type Cursor struct {
	buf []byte
	pos int
	end int
}

// New returns a cursor over buf, reading from pos 0 to len(buf).
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf, pos: 0, end: len(buf)}
}

// Done reports whether the cursor has reached the end of the buffer.
func (c *Cursor) Done() bool {
	return c.pos >= c.end
}

// SkipUntil advances past the next occurrence of ch, returning false (and
// leaving the cursor at end) if ch never appears.
func (c *Cursor) SkipUntil(ch byte) bool {
	for c.pos < c.end {
		if c.buf[c.pos] == ch {
			c.pos++
			return true
		}
		c.pos++
	}
	return false
}

// TakeWord skips any run of spaces/parentheses, then returns the next
// whitespace-or-')'-delimited slice, advancing one past the terminator. The
// returned slice aliases the cursor's backing buffer.
func (c *Cursor) TakeWord() []byte {
	for c.pos < c.end && isWordBoundary(c.buf[c.pos]) {
		c.pos++
	}
	start := c.pos
	for c.pos < c.end && !isWordTerminator(c.buf[c.pos]) {
		c.pos++
	}
	word := c.buf[start:c.pos]
	if c.pos < c.end {
		c.pos++ // skip the terminator
	}
	return word
}

func isWordBoundary(b byte) bool {
	return b == ' ' || b == '(' || b == ')'
}

func isWordTerminator(b byte) bool {
	return b == ' ' || b == ')'
}

// Number is the set of numeric kinds TakeNumber can populate, matching what
// the original's get_value<T> template is instantiated with.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// TakeNumber parses a decimal number starting at the cursor in place,
// advancing one past its terminator, exactly like TakeWord's delimiter
// rule. It reports whether the conversion succeeded. The []byte-to-string
// conversion handed to strconv is a small fixed allocation (a handful of
// bytes, never the payload) — Go's standard library has no allocation-free
// numeric parser over []byte, so this is the floor for "must not allocate
// beyond a small fixed overhead".
func TakeNumber[T Number](c *Cursor, out *T) bool {
	start := c.pos
	for c.pos < c.end && !isWordTerminator(c.buf[c.pos]) {
		c.pos++
	}
	word := c.buf[start:c.pos]
	if c.pos < c.end {
		c.pos++
	}
	return parseInto(word, out)
}

func parseInto[T Number](word []byte, out *T) bool {
	switch p := any(out).(type) {
	case *float64:
		v, err := strconv.ParseFloat(string(word), 64)
		if err != nil {
			return false
		}
		*p = v
	case *float32:
		v, err := strconv.ParseFloat(string(word), 32)
		if err != nil {
			return false
		}
		*p = float32(v)
	case *uint8:
		v, err := strconv.ParseUint(string(word), 10, 8)
		if err != nil {
			return false
		}
		*p = uint8(v)
	case *uint16:
		v, err := strconv.ParseUint(string(word), 10, 16)
		if err != nil {
			return false
		}
		*p = uint16(v)
	case *uint32:
		v, err := strconv.ParseUint(string(word), 10, 32)
		if err != nil {
			return false
		}
		*p = uint32(v)
	case *uint64:
		v, err := strconv.ParseUint(string(word), 10, 64)
		if err != nil {
			return false
		}
		*p = v
	case *uint:
		v, err := strconv.ParseUint(string(word), 10, 64)
		if err != nil {
			return false
		}
		*p = uint(v)
	case *int8:
		v, err := strconv.ParseInt(string(word), 10, 8)
		if err != nil {
			return false
		}
		*p = int8(v)
	case *int16:
		v, err := strconv.ParseInt(string(word), 10, 16)
		if err != nil {
			return false
		}
		*p = int16(v)
	case *int32:
		v, err := strconv.ParseInt(string(word), 10, 32)
		if err != nil {
			return false
		}
		*p = int32(v)
	case *int64:
		v, err := strconv.ParseInt(string(word), 10, 64)
		if err != nil {
			return false
		}
		*p = v
	case *int:
		v, err := strconv.Atoi(string(word))
		if err != nil {
			return false
		}
		*p = v
	default:
		return false
	}
	return true
}

// Advance skips n bytes, refusing (and leaving the cursor unmoved) if that
// would read past end.
func (c *Cursor) Advance(n int) bool {
	if c.pos+n > c.end {
		return false
	}
	c.pos += n
	return true
}

// SkipUnknownGroup assumes the cursor is positioned just inside an
// unmatched '(' and advances past the matching ')', counting nested depth
// so it doesn't misinterpret the unknown tag's own children.
func (c *Cursor) SkipUnknownGroup() {
	depth := 1
	for depth != 0 && c.pos < c.end {
		switch c.buf[c.pos] {
		case '(':
			depth++
		case ')':
			depth--
		}
		c.pos++
	}
}

// Context returns a small window of bytes around the cursor for use in
// warning log lines, matching the original's 20-byte-before/-after debug
// window (spec.md §7's parse-skip error policy).
func (c *Cursor) Context() string {
	start := c.pos - 20
	if start < 0 {
		start = 0
	}
	stop := c.pos + 20
	if stop > len(c.buf) {
		stop = len(c.buf)
	}
	return fmt.Sprintf("%q", c.buf[start:stop])
}

// Peek returns the byte at the cursor without advancing, and false if at
// end.
func (c *Cursor) Peek() (byte, bool) {
	if c.pos >= c.end {
		return 0, false
	}
	return c.buf[c.pos], true
}

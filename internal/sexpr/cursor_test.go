package sexpr_test

import (
	"testing"

	"github.com/matryer/is"
	"github.com/roboime/soccer-agent-runtime/internal/sexpr"
)

func TestSkipUntil(t *testing.T) {
	is := is.New(t)

	c := sexpr.New([]byte("abc(def"))
	is.True(c.SkipUntil('('))

	c2 := sexpr.New([]byte("abcdef"))
	is.True(!c2.SkipUntil('('))
}

func TestTakeWord(t *testing.T) {
	is := is.New(t)

	c := sexpr.New([]byte("  ((time (now 10.03)"))
	word := c.TakeWord()
	is.Equal(string(word), "time")
}

func TestTakeWordStopsAtCloseParen(t *testing.T) {
	is := is.New(t)

	c := sexpr.New([]byte("sl 0)"))
	tag := c.TakeWord()
	is.Equal(string(tag), "sl")
	var v uint8
	is.True(sexpr.TakeNumber(c, &v))
	is.Equal(v, uint8(0))
}

func TestTakeNumberFloat(t *testing.T) {
	is := is.New(t)

	c := sexpr.New([]byte("10.03)"))
	var v float64
	is.True(sexpr.TakeNumber(c, &v))
	is.Equal(v, 10.03)
}

func TestTakeNumberNegativeFloat32(t *testing.T) {
	is := is.New(t)

	c := sexpr.New([]byte("-1.500000)"))
	var v float32
	is.True(sexpr.TakeNumber(c, &v))
	is.Equal(v, float32(-1.5))
}

func TestTakeNumberInvalid(t *testing.T) {
	is := is.New(t)

	c := sexpr.New([]byte("notanumber)"))
	var v float64
	is.True(!sexpr.TakeNumber(c, &v))
}

func TestAdvanceBounded(t *testing.T) {
	is := is.New(t)

	c := sexpr.New([]byte("12345"))
	is.True(c.Advance(3))
	is.True(!c.Advance(10))
	is.True(c.Advance(2))
	is.True(c.Done())
}

func TestSkipUnknownGroup(t *testing.T) {
	is := is.New(t)

	// cursor positioned just inside the unmatched '(' of "ZZZ"
	c := sexpr.New([]byte("ZZZ (nested (deeper)) foo) (time (now 1))"))
	tag := c.TakeWord()
	is.Equal(string(tag), "ZZZ")
	c.SkipUnknownGroup()

	tag2 := c.TakeWord()
	is.Equal(string(tag2), "time")
}

func TestCursorNeverReadsPastEnd(t *testing.T) {
	is := is.New(t)

	c := sexpr.New([]byte("(ab"))
	c.TakeWord() // consumes "(ab" entirely, no terminator found
	is.True(c.Done())
	is.True(!c.Advance(1))
}

package messageparser

import (
	"github.com/roboime/soccer-agent-runtime/internal/asynclog"
	"github.com/roboime/soccer-agent-runtime/internal/worldstate"

	"github.com/roboime/soccer-agent-runtime/internal/sexpr"
)

// parseVision walks the nested See-group: P (seen player), B (ball), G/F
// (fixed landmarks, treated symmetrically — see the Open Question note in
// DESIGN.md), and L (line, two endpoints). It stops when two consecutive
// ')' are seen at the cursor, the end of the enclosing See-group.
func parseVision(c *sexpr.Cursor, ws *worldstate.WorldState, log *asynclog.Logger) {
	for {
		tag := c.TakeWord()
		if len(tag) == 0 {
			return
		}

		switch tag[0] {
		case 'P':
			parseVisionPlayer(c, log)
		case 'B', 'G', 'F':
			if !c.Advance(5) {
				return
			}
			var x, y, z float64
			sexpr.TakeNumber(c, &x)
			sexpr.TakeNumber(c, &y)
			sexpr.TakeNumber(c, &z)
		case 'L':
			if !c.Advance(5) {
				return
			}
			var x1, y1, z1 float64
			sexpr.TakeNumber(c, &x1)
			sexpr.TakeNumber(c, &y1)
			sexpr.TakeNumber(c, &z1)

			if !c.Advance(6) {
				return
			}
			var x2, y2, z2 float64
			sexpr.TakeNumber(c, &x2)
			sexpr.TakeNumber(c, &y2)
			sexpr.TakeNumber(c, &z2)
		default:
			if log != nil {
				log.Warnf("messageparser: unknown See entry %q near %s", tag, c.Context())
			}
		}

		if closeGroup(c) {
			return
		}
	}
}

// parseVisionPlayer reads a seen player's team (discarded), uniform
// number (discarded), and one of head/right-hand/left-hand body-part
// slots, each a 3-vector (discarded — an implementer wires these to a
// perception model).
func parseVisionPlayer(c *sexpr.Cursor, log *asynclog.Logger) {
	for {
		sub := c.TakeWord()
		if len(sub) == 0 {
			return
		}

		switch sub[0] {
		case 't':
			c.TakeWord() // team name, discarded
		case 'i':
			var unum uint8
			sexpr.TakeNumber(c, &unum)
		case 'h', 'r', 'l':
			if !c.Advance(5) {
				return
			}
			var x, y, z float64
			sexpr.TakeNumber(c, &x)
			sexpr.TakeNumber(c, &y)
			sexpr.TakeNumber(c, &z)
		default:
			if log != nil {
				log.Warnf("messageparser: unknown See:P entry %q near %s", sub, c.Context())
			}
		}

		if closeGroup(c) {
			return
		}
	}
}

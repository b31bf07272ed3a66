// Package messageparser implements MessageParser (C4): given a borrowed
// frame, mutate a referenced WorldState without allocating beyond a small
// fixed overhead and without copying payload bytes. Grounded on
// original_source/src/Environment/Environment.hpp's update_from_server and
// its Parsing::parse_* methods, with the top-level dispatch redesigned per
// Design Note 3: a brittle first-byte switch (where "GS" and "GYR" both
// start with 'G', "GS"/"GYR" disambiguated by peeking a second byte, and a
// handful of branches silently do nothing on an unexpected second byte)
// becomes a full-tag hash lookup, grounded on the teacher's
// lobbyserver.makeAddrKey xxhash-keyed dispatch pattern.
package messageparser

import (
	"github.com/cespare/xxhash/v2"

	"github.com/roboime/soccer-agent-runtime/internal/asynclog"
	"github.com/roboime/soccer-agent-runtime/internal/playmode"
	"github.com/roboime/soccer-agent-runtime/internal/sexpr"
	"github.com/roboime/soccer-agent-runtime/internal/worldstate"
)

type handler func(c *sexpr.Cursor, ws *worldstate.WorldState, log *asynclog.Logger)

var dispatch = map[uint64]handler{
	xxhash.Sum64String("time"): parseTime,
	xxhash.Sum64String("GS"):   parseGamestate,
	xxhash.Sum64String("GYR"):  parseGyroscope,
	xxhash.Sum64String("ACC"):  parseAccelerometer,
	xxhash.Sum64String("See"):  parseVision,
	xxhash.Sum64String("HJ"):   parseHingeJoint,
	xxhash.Sum64String("FRP"):  parseForceResistance,
	xxhash.Sum64String("hear"): parseHear,
}

// Parse walks frame from the start, dispatching each top-level
// parenthesized tag to its handler and mutating ws in place. log may be
// nil, in which case warnings are dropped (matches asynclog's own
// nil-discards convention used throughout the rest of the module).
func Parse(frame []byte, ws *worldstate.WorldState, log *asynclog.Logger) {
	c := sexpr.New(frame)
	for {
		if !c.SkipUntil('(') {
			return
		}

		tag := c.TakeWord()
		if len(tag) == 0 {
			continue
		}

		h, ok := dispatch[xxhash.Sum64(tag)]
		if !ok {
			if log != nil {
				log.Warnf("messageparser: unknown top-level tag %q near %s", tag, c.Context())
			}
			c.SkipUnknownGroup()
			continue
		}

		h(c, ws, log)
	}
}

// parseTime expects "(now V)" immediately and updates ws.TimeServer.
func parseTime(c *sexpr.Cursor, ws *worldstate.WorldState, _ *asynclog.Logger) {
	if !c.Advance(5) {
		return
	}
	sexpr.TakeNumber(c, &ws.TimeServer)
	c.Advance(1)
}

// parseGamestate loops over subtags until ')' is seen at the current
// position, dispatching on the subtag's first byte.
func parseGamestate(c *sexpr.Cursor, ws *worldstate.WorldState, log *asynclog.Logger) {
	for {
		sub := c.TakeWord()
		if len(sub) == 0 {
			return
		}

		switch sub[0] {
		case 's':
			switch string(sub) {
			case "sl":
				sexpr.TakeNumber(c, &ws.GoalsScored)
			case "sr":
				sexpr.TakeNumber(c, &ws.GoalsConceded)
			default:
				warnSubtag(log, "GS", sub, c)
			}
		case 'p':
			// the server guarantees 'team' arrives before the first 'pm'
			val := c.TakeWord()
			if mode, ok := playmode.Resolve(val, ws.IsLeft); ok {
				ws.CurrentMode = mode
			} else if log != nil {
				log.Warnf("messageparser: unknown play mode %q", val)
			}
		case 't':
			if len(sub) == 1 {
				sexpr.TakeNumber(c, &ws.TimeMatch)
			} else if string(sub) == "team" {
				val := c.TakeWord()
				if len(val) > 0 {
					ws.IsLeft = val[0] == 'l'
				}
			} else {
				warnSubtag(log, "GS", sub, c)
			}
		case 'u':
			sexpr.TakeNumber(c, &ws.Unum)
		default:
			warnSubtag(log, "GS", sub, c)
		}

		if b, ok := c.Peek(); !ok || b == ')' {
			return
		}
	}
}

func warnSubtag(log *asynclog.Logger, group string, sub []byte, c *sexpr.Cursor) {
	if log != nil {
		log.Warnf("messageparser: unknown %s subtag %q near %s", group, sub, c.Context())
	}
}

// parseGyroscope advances past the fixed header and reads three
// angular-velocity components. An implementer wires these to an IMU
// structure; this parser discards them, matching the reference.
func parseGyroscope(c *sexpr.Cursor, _ *worldstate.WorldState, _ *asynclog.Logger) {
	if !c.Advance(14) {
		return
	}
	var x, y, z float64
	sexpr.TakeNumber(c, &x)
	sexpr.TakeNumber(c, &y)
	sexpr.TakeNumber(c, &z)
}

// parseAccelerometer advances past the fixed header and reads three
// linear-acceleration components. The reference implementation's loop
// read zero components (`for i := 3; i < 3; i++`, never entered); this
// reads all three, the corrected behavior.
func parseAccelerometer(c *sexpr.Cursor, _ *worldstate.WorldState, _ *asynclog.Logger) {
	if !c.Advance(13) {
		return
	}
	var x, y, z float64
	sexpr.TakeNumber(c, &x)
	sexpr.TakeNumber(c, &y)
	sexpr.TakeNumber(c, &z)
}

// parseHingeJoint advances past the header, reads the joint abbreviation,
// then the current angle.
func parseHingeJoint(c *sexpr.Cursor, _ *worldstate.WorldState, _ *asynclog.Logger) {
	if !c.Advance(3) {
		return
	}
	c.TakeWord() // joint abbreviation, discarded
	if !c.Advance(5) {
		return
	}
	var angle float64
	sexpr.TakeNumber(c, &angle)
}

// parseForceResistance advances past the header, reads the foot tag, a
// 3-vector contact point, and a 3-vector force.
func parseForceResistance(c *sexpr.Cursor, _ *worldstate.WorldState, _ *asynclog.Logger) {
	if !c.Advance(3) {
		return
	}
	c.TakeWord() // foot tag, discarded

	if !c.Advance(4) {
		return
	}
	var cx, cy, cz float64
	sexpr.TakeNumber(c, &cx)
	sexpr.TakeNumber(c, &cy)
	sexpr.TakeNumber(c, &cz)

	if !c.Advance(4) {
		return
	}
	var fx, fy, fz float64
	sexpr.TakeNumber(c, &fx)
	sexpr.TakeNumber(c, &fy)
	sexpr.TakeNumber(c, &fz)
}

// parseHear consumes and discards a 'hear' message: the reference parser
// treats it as a no-op stub, so this logs at Info (a known tag, not a
// warning) and skips its contents.
func parseHear(c *sexpr.Cursor, _ *worldstate.WorldState, log *asynclog.Logger) {
	if log != nil {
		log.Infof("messageparser: hear message received near %s", c.Context())
	}
	c.SkipUnknownGroup()
}

// closeGroup implements the reference's double-close-paren loop-exit
// check shared by parse_vision's outer loop and its nested player
// subparse: if the cursor sits on ')', consume it, then report whether
// the *next* byte is also ')' — in which case the enclosing group's own
// closing paren is left unconsumed for the top-level dispatch to skip
// over, exactly like every other subparser's trailing paren.
func closeGroup(c *sexpr.Cursor) bool {
	b, ok := c.Peek()
	if !ok || b != ')' {
		return false
	}
	c.Advance(1)
	b2, ok2 := c.Peek()
	return !ok2 || b2 == ')'
}

package worldstate_test

import (
	"testing"

	"github.com/matryer/is"
	"github.com/roboime/soccer-agent-runtime/internal/playmode"
	"github.com/roboime/soccer-agent-runtime/internal/worldstate"
)

func TestNewDefaultsToBeforeKickoff(t *testing.T) {
	is := is.New(t)

	ws := worldstate.New()
	is.Equal(ws.CurrentMode, playmode.BeforeKickoff)
	is.Equal(ws.Unum, uint8(0))
	is.Equal(ws.IsLeft, false)
}

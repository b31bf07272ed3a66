// Package playmode holds the PlayMode enumeration and the immutable,
// process-wide server-event-string to PlayMode table. Grounded on
// original_source/src/Environment/Environment.hpp's PlayMode enum and
// play_modes table (same iota ordering, same table contents), per spec.md
// §3 and §6.
package playmode

// PlayMode enumerates the 21 play modes a RoboCup 3D agent can observe,
// already resolved to "our team" vs "their team" perspective.
type PlayMode uint8

const (
	// Ours.
	OurKickoff PlayMode = iota
	OurKickIn
	OurCornerKick
	OurGoalKick
	OurFreeKick
	OurPass
	OurDirFreeKick
	OurGoal
	OurOffside

	// Theirs.
	TheirKickoff
	TheirKickIn
	TheirCornerKick
	TheirGoalKick
	TheirFreeKick
	TheirPass
	TheirDirFreeKick
	TheirGoal
	TheirOffside

	// Neutral.
	BeforeKickoff
	GameOver
	PlayOn
)

func (m PlayMode) String() string {
	switch m {
	case OurKickoff:
		return "OUR_KICKOFF"
	case OurKickIn:
		return "OUR_KICK_IN"
	case OurCornerKick:
		return "OUR_CORNER_KICK"
	case OurGoalKick:
		return "OUR_GOAL_KICK"
	case OurFreeKick:
		return "OUR_FREE_KICK"
	case OurPass:
		return "OUR_PASS"
	case OurDirFreeKick:
		return "OUR_DIR_FREE_KICK"
	case OurGoal:
		return "OUR_GOAL"
	case OurOffside:
		return "OUR_OFFSIDE"
	case TheirKickoff:
		return "THEIR_KICKOFF"
	case TheirKickIn:
		return "THEIR_KICK_IN"
	case TheirCornerKick:
		return "THEIR_CORNER_KICK"
	case TheirGoalKick:
		return "THEIR_GOAL_KICK"
	case TheirFreeKick:
		return "THEIR_FREE_KICK"
	case TheirPass:
		return "THEIR_PASS"
	case TheirDirFreeKick:
		return "THEIR_DIR_FREE_KICK"
	case TheirGoal:
		return "THEIR_GOAL"
	case TheirOffside:
		return "THEIR_OFFSIDE"
	case BeforeKickoff:
		return "BEFORE_KICKOFF"
	case GameOver:
		return "GAME_OVER"
	case PlayOn:
		return "PLAY_ON"
	default:
		return "UNKNOWN_PLAY_MODE"
	}
}

// perspective is a [when-we-are-left, when-we-are-right] pair, indexed
// explicitly by isLeft rather than by a coerced bool (spec.md §9 Open
// Question: the original's `it->second[env->is_left]` is fragile).
type perspective [2]PlayMode

// Table is the normative server-event-string -> perspective mapping from
// spec.md §6. Built once at init and never mutated afterward, so it may be
// shared freely across agents/goroutines without synchronization.
var Table = map[string]perspective{
	"BeforeKickOff": {BeforeKickoff, BeforeKickoff},
	"GameOver":      {GameOver, GameOver},
	"PlayOn":        {PlayOn, PlayOn},

	"KickOff_Left":          {OurKickoff, TheirKickoff},
	"KickIn_Left":           {OurKickIn, TheirKickIn},
	"corner_kick_left":      {OurCornerKick, TheirCornerKick},
	"goal_kick_left":        {OurGoalKick, TheirGoalKick},
	"free_kick_left":        {OurFreeKick, TheirFreeKick},
	"pass_left":             {OurPass, TheirPass},
	"direct_free_kick_left": {OurDirFreeKick, TheirDirFreeKick},
	"Goal_Left":             {OurGoal, TheirGoal},
	"offside_left":          {OurOffside, TheirOffside},

	"KickOff_Right":          {TheirKickoff, OurKickoff},
	"KickIn_Right":           {TheirKickIn, OurKickIn},
	"corner_kick_right":      {TheirCornerKick, OurCornerKick},
	"goal_kick_right":        {TheirGoalKick, OurGoalKick},
	"free_kick_right":        {TheirFreeKick, OurFreeKick},
	"pass_right":             {TheirPass, OurPass},
	"direct_free_kick_right": {TheirDirFreeKick, OurDirFreeKick},
	"Goal_Right":             {TheirGoal, OurGoal},
	"offside_right":          {TheirOffside, OurOffside},
}

// Resolve looks up a server event string by a borrowed byte slice, without
// allocating a temporary owned key: string(key) used directly as a map
// index expression is a compiler-recognized special case that elides the
// copy. isLeft selects which column of the stored pair applies.
func Resolve(key []byte, isLeft bool) (PlayMode, bool) {
	p, ok := Table[string(key)]
	if !ok {
		return 0, false
	}
	if isLeft {
		return p[0], true
	}
	return p[1], true
}

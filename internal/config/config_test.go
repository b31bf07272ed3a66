package config_test

import (
	"testing"

	"github.com/matryer/is"
	"github.com/roboime/soccer-agent-runtime/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	is := is.New(t)

	cfg, err := config.Load()
	is.NoErr(err)
	is.Equal(cfg.AgentHost, "localhost")
	is.Equal(cfg.AgentPort, 3100)
	is.Equal(cfg.TeamName, "RoboIME")
	is.Equal(cfg.AgentAddr(), "localhost:3100")
	is.Equal(cfg.DrawAddr(), "127.0.0.1:32769")
}

func TestLoadFromEnv(t *testing.T) {
	is := is.New(t)

	t.Setenv("AGENT_PORT", "4100")
	t.Setenv("TEAM_NAME", "TestTeam")

	cfg, err := config.Load()
	is.NoErr(err)
	is.Equal(cfg.AgentPort, 4100)
	is.Equal(cfg.TeamName, "TestTeam")
}

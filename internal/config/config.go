// Package config loads the runtime-tunable constants the original
// implementation hardcodes (host, port, team name, timeouts, the draw
// endpoint, the log directory) from the environment, following the
// envconfig.Process shape the teacher's cmd/server used to bring up its
// lobby server.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/roboime/soccer-agent-runtime/internal/serverlink"
)

// Config holds every value an agent process needs to construct its
// ServerLink, AsyncLogger, and DrawTransport.
type Config struct {
	// AgentHost/AgentPort address the rcssserver3d TCP endpoint.
	AgentHost string `envconfig:"AGENT_HOST" default:"localhost"`
	AgentPort int    `envconfig:"AGENT_PORT" default:"3100"`

	// TeamName is sent in the (init (unum U) (teamname NAME)) handshake.
	TeamName string `envconfig:"TEAM_NAME" default:"RoboIME"`

	// RecvTimeout bounds a single blocking recv on the server link.
	RecvTimeout time.Duration `envconfig:"RECV_TIMEOUT" default:"2s"`
	// ConnectRetryInterval is the wait between failed connection attempts.
	ConnectRetryInterval time.Duration `envconfig:"CONNECT_RETRY_INTERVAL" default:"500ms"`
	// KeepAlivePollInterval is the yield between receive_async iterations.
	KeepAlivePollInterval time.Duration `envconfig:"KEEP_ALIVE_POLL_INTERVAL" default:"1ms"`

	// DrawHost/DrawPort address the RoboViz UDP visualizer.
	DrawHost string `envconfig:"DRAW_HOST" default:"127.0.0.1"`
	DrawPort int    `envconfig:"DRAW_PORT" default:"32769"`

	// LogDir is the directory async log files are created under.
	LogDir string `envconfig:"LOG_DIR" default:"logs"`
}

// Load reads Config from the process environment, applying defaults for
// anything unset.
func Load() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("could not process config: %w", err)
	}
	return cfg, nil
}

// AgentAddr returns the "host:port" form ServerLink dials.
func (c *Config) AgentAddr() string {
	return fmt.Sprintf("%s:%d", c.AgentHost, c.AgentPort)
}

// DrawAddr returns the "host:port" form DrawTransport sends to.
func (c *Config) DrawAddr() string {
	return fmt.Sprintf("%s:%d", c.DrawHost, c.DrawPort)
}

// ServerLinkOptions bridges this config to the timeouts serverlink.New
// expects.
func (c *Config) ServerLinkOptions() serverlink.Options {
	return serverlink.Options{
		RecvTimeout:           c.RecvTimeout,
		ConnectRetryInterval:  c.ConnectRetryInterval,
		KeepAlivePollInterval: c.KeepAlivePollInterval,
	}
}

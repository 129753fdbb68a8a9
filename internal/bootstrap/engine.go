package bootstrap

import (
	"go.uber.org/zap"

	"chess_review/internal/engine"
	"chess_review/internal/scheduler"
)

// EngineConfig translates the engine section of cfg.
func (c *Config) EngineConfig(log *zap.SugaredLogger) engine.Config {
	path, err := engine.FindBinary(c.StockfishPath)
	if err != nil {
		// spawning will fail later with a proper error
		log.Warnf("%v, falling back to \"stockfish\"", err)
		path = "stockfish"
	}
	return engine.Config{
		Path:             path,
		HandshakeTimeout: c.HandshakeTimeout,
		PerDepthTimeout:  c.PerDepthTimeout,
		MinJobTimeout:    c.MinJobTimeout,
		MaxJobTimeout:    c.MaxJobTimeout,
		StopGrace:        c.StopGrace,
		Options: engine.Options{
			Threads: c.EngineThreads,
			HashMB:  c.EngineHashMB,
		},
	}
}

// NewLocalEngine builds the engine client and the scheduler in front of it.
// The caller runs the scheduler and closes the client.
func NewLocalEngine(cfg *Config, log *zap.SugaredLogger) (*engine.Client, *scheduler.Scheduler) {
	client := engine.NewClient(cfg.EngineConfig(log), engine.ExecLauncher{}, log.Named("engine"))
	return client, scheduler.New(client, log.Named("scheduler"), cfg.CoalesceWindow)
}

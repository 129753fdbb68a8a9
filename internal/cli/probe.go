package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chess_review/internal/bootstrap"
	"chess_review/internal/engine"
)

func init() {
	var timeout time.Duration
	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Start a throwaway engine and check that it completes the handshake",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap.Setup(configPath)
			if err != nil {
				return err
			}
			log := bootstrap.NewLogger(logLevel)
			ecfg := cfg.EngineConfig(log)

			res := engine.Probe(cmd.Context(), engine.ExecLauncher{}, ecfg.Path, timeout)
			out := cmd.OutOrStdout()
			if jsonOutput(out) {
				if err := writeJSON(out, res); err != nil {
					return err
				}
			} else if res.OK {
				fmt.Fprintf(out, "ok: %s (%s) in %dms\n", res.Name, res.Path, res.ElapsedMs)
			} else {
				fmt.Fprintf(out, "not ready: %s (%s)\n", res.Error, res.Path)
			}
			if !res.OK {
				return fmt.Errorf("engine probe failed")
			}
			return nil
		},
	}
	probeCmd.Flags().DurationVar(&timeout, "timeout", 8*time.Second, "handshake timeout")
	rootCmd.AddCommand(probeCmd)
}

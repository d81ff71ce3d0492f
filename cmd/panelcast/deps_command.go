package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"panelcast/internal/deps"
	"panelcast/internal/preflight"
	"panelcast/internal/textutil"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Report ffmpeg and ffprobe availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			statuses = deps.DetectVersions(cmd.Context(), ctx.tools, statuses, cfg.ProbeTimeout())

			if jsonOutput {
				if err := writeJSON(cmd, statuses); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(statuses))
				for _, status := range statuses {
					location := status.Path
					if !status.Available {
						location = status.Detail
					}
					rows = append(rows, []string{
						status.Name,
						textutil.Ternary(status.Available, "available", "missing"),
						textutil.Ternary(status.Version != "", status.Version, "-"),
						location,
					})
				}
				fmt.Fprint(out, renderTable(
					[]column{left("Dependency"), left("Status"), left("Version"), left("Location")},
					rows,
				))
			}

			if missing := deps.Missing(statuses); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, status := range missing {
					names = append(names, status.Command)
				}
				return fmt.Errorf("missing required dependencies: %s", strings.Join(names, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

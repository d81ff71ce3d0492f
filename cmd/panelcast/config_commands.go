package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"panelcast/internal/config"
	"panelcast/internal/preflight"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if _, err := os.Stat(target); err == nil && !overwrite {
				return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
			} else if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("check config path: %w", err)
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			sample, _, _, err := config.Load(target)
			if err != nil {
				return fmt.Errorf("reload sample config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, renderField("Images", sample.Paths.ImagesDir))
			fmt.Fprintln(out, renderField("Narration", sample.Paths.AudioDir))
			fmt.Fprintln(out, renderField("Target", sample.VideoSpec().String()))
			fmt.Fprintln(out, "Edit paths.images_dir and paths.audio_dir, then run `panelcast config validate`.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration and report on configured paths and tools",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(strings.TrimSpace(*ctx.configFlag))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			printSection(out, "Configuration", colorize)
			if exists {
				fmt.Fprintln(out, renderField("Config path", path))
			} else {
				fmt.Fprintln(out, renderStatusLine("Config path", statusInfo, path+" (not found, using defaults)", colorize))
			}
			fmt.Fprintln(out, renderField("Final output", cfg.Paths.FinalOutput))
			fmt.Fprintln(out, renderField("Target", cfg.VideoSpec().String()))

			printSection(out, "Environment", colorize)
			results := []preflight.Result{
				preflight.CheckReadableDirectory("Images", cfg.Paths.ImagesDir),
				preflight.CheckOptionalDirectory("Narration", cfg.Paths.AudioDir),
				preflight.CheckCreatableDirectory("Chapter videos", cfg.Paths.ChapterVideosDir),
				preflight.CheckCreatableDirectory("Work directory", cfg.Paths.WorkDir),
			}
			results = append(results, preflight.DependencyResults(cmd.Context(), cfg)...)
			for _, r := range results {
				fmt.Fprintln(out, renderStatusLine(r.Name, preflightStatus(r), r.Detail, colorize))
			}

			fmt.Fprintln(out)
			if failed := preflight.Failures(results); len(failed) > 0 {
				fmt.Fprintf(out, "Configuration valid; %d environment check(s) need attention before running\n", len(failed))
				return nil
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/keagan/reelforge/internal/config"
	"github.com/keagan/reelforge/internal/logging"
	"github.com/keagan/reelforge/internal/niche"
	"github.com/keagan/reelforge/internal/pipeline"
	"github.com/keagan/reelforge/internal/plan"
)

var (
	cfgFile  string
	verbose  bool
	jsonLogs bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logError(err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "reelforge",
	Short: "reelforge - multi-clip vertical reel composer",
	Long:  "Composes several source clips into one 9:16 reel with a niche look, zoom, caption and mixed audio.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(logging.Options{Verbose: verbose, JSON: jsonLogs})

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./reelforge.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "log as JSON lines")

	renderCmd.Flags().StringArrayP("clip", "c", nil, "source clip (repeatable, order defines clip_index)")
	renderCmd.Flags().StringP("plan", "p", "", "edit plan JSON file (default: fallback plan)")
	renderCmd.Flags().StringP("niche", "n", "", "style preset (fitness, cooking, tech, travel, business)")
	renderCmd.Flags().String("music", "", "background music file")
	renderCmd.Flags().String("narration", "", "narration audio file")
	renderCmd.Flags().StringP("out", "o", "reel.mp4", "output file")
	renderCmd.MarkFlagRequired("clip")

	batchCmd.Flags().Int("concurrency", 0, "renders in flight (default: config concurrency)")

	planValidateCmd.Flags().Int("clips", 0, "number of available source clips")
	planValidateCmd.MarkFlagRequired("clips")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(configCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one reel from source clips",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		clips, _ := cmd.Flags().GetStringArray("clip")
		planFile, _ := cmd.Flags().GetString("plan")
		nicheName, _ := cmd.Flags().GetString("niche")
		music, _ := cmd.Flags().GetString("music")
		narration, _ := cmd.Flags().GetString("narration")
		out, _ := cmd.Flags().GetString("out")

		req := pipeline.Request{
			Clips:     clips,
			Niche:     niche.Parse(nicheName),
			Music:     music,
			Narration: narration,
			Output:    out,
		}
		if planFile != "" {
			p, err := plan.ParseFile(planFile)
			if err != nil {
				return err
			}
			req.Plan = p
		}

		pipe, err := pipeline.NewFromConfig(log.Logger, cfg)
		if err != nil {
			return err
		}

		res, err := pipe.Render(cmd.Context(), req)
		if err != nil {
			return err
		}

		log.Info().
			Str("render_id", res.RenderID).
			Str("output", res.Output).
			Str("caption", res.Caption).
			Dur("elapsed", res.Elapsed).
			Msg("reel ready")
		return nil
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch [manifest]",
	Short: "Render every job of a YAML or JSON manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		manifest, err := pipeline.LoadManifest(args[0])
		if err != nil {
			return err
		}

		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if concurrency <= 0 {
			concurrency = cfg.Concurrency
		}

		pipe, err := pipeline.NewFromConfig(log.Logger, cfg)
		if err != nil {
			return err
		}

		log.Info().
			Int("jobs", len(manifest.Jobs)).
			Int("concurrency", concurrency).
			Msg("starting batch")

		var failed int
		for _, r := range pipe.RenderBatch(cmd.Context(), manifest.Jobs, concurrency) {
			if r.Err != nil {
				failed++
				log.Error().Err(r.Err).Str("job", r.Job).Msg("job failed")
				continue
			}
			log.Info().
				Str("job", r.Job).
				Str("output", r.Result.Output).
				Dur("elapsed", r.Result.Elapsed).
				Msg("job complete")
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d jobs failed", failed, len(manifest.Jobs))
		}
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Edit plan commands",
}

var planValidateCmd = &cobra.Command{
	Use:   "validate [plan file]",
	Short: "Validate an edit plan against a clip count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		clipCount, _ := cmd.Flags().GetInt("clips")

		p, err := plan.ParseFile(args[0])
		if err != nil {
			return err
		}

		validated, err := p.Validate(clipCount)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "#\tCLIP\tSTART\tDURATION")
		for i, seg := range validated.Segments {
			fmt.Fprintf(w, "%d\t%d\t%.2fs\t%.2fs\n", i, seg.ClipIndex, seg.Start, seg.Duration)
		}
		w.Flush()

		fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d segments usable, nominal %.2fs\n",
			len(validated.Segments), len(p.Segments), validated.NominalDuration())
		if validated.HasScript() {
			fmt.Fprintf(cmd.OutOrStdout(), "script: %s\n", strings.TrimSpace(validated.Script))
		}
		return nil
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List niche style presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NICHE\tSATURATION\tCONTRAST\tBRIGHTNESS\tCAPTION")
		for _, n := range append(append([]niche.Niche{}, niche.All...), niche.Default) {
			p := n.Preset()
			fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%s\n",
				strings.ToLower(n.String()), p.Grade.Saturation, p.Grade.Contrast, p.Grade.Brightness, p.Caption)
		}
		return w.Flush()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the effective configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		path := "reelforge.yaml"
		if len(args) == 1 {
			path = args[0]
		}

		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}

		if err := cfg.Save(path); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	planCmd.AddCommand(planValidateCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// logError logs a command failure with the details a typed failure carries
func logError(err error) {
	var (
		empty     *plan.PlanEmptyError
		renderErr *pipeline.RenderError
	)
	switch {
	case errors.As(err, &empty):
		log.Error().Err(err).Msg("nothing to render, re-plan and try again")
	case errors.As(err, &renderErr):
		log.Error().Err(err).Str("diagnostic", renderErr.Diagnostic).Msg("encode failed")
	default:
		log.Error().Err(err).Msg("command failed")
	}
}

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"loopbuilder/internal/config"
	"loopbuilder/internal/engine"
	"loopbuilder/internal/logging"
	"loopbuilder/internal/paths"
	"loopbuilder/internal/pipeline"
)

var (
	buildDuration        float64
	buildOutput          string
	buildFPS             int
	buildResolution      string
	buildTransition      string
	buildBatchSize       int
	buildSeed            int64
	buildMusicVolume     float64
	buildMusicShuffle    bool
	buildSoundsVolume    float64
	buildQuoteStyle      string
	buildQuoteDuration   float64
	buildQuoteMinBetween float64
	buildQuoteMaxBetween float64
	buildQuoteShuffle    bool
	buildDryRun          bool
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Assemble the looping video from the run directory sources",
		RunE:  runBuild,
	}

	cmd.Flags().Float64Var(&buildDuration, "duration", 0, "Target duration in seconds")
	cmd.Flags().StringVar(&buildOutput, "output", "", "Output file path")
	cmd.Flags().IntVar(&buildFPS, "fps", 0, "Output frame rate")
	cmd.Flags().StringVar(&buildResolution, "resolution", "", "Output resolution as WIDTHxHEIGHT")
	cmd.Flags().StringVar(&buildTransition, "transition", "", "Clip transition: none, fade or crossfade")
	cmd.Flags().IntVar(&buildBatchSize, "batch-size", 0, "Segments joined per concat batch")
	cmd.Flags().Int64Var(&buildSeed, "seed", 0, "Random seed for reproducible runs")
	cmd.Flags().Float64Var(&buildMusicVolume, "music-volume", 0, "Music volume from 0 to 1")
	cmd.Flags().BoolVar(&buildMusicShuffle, "music-shuffle", false, "Shuffle music and clip order")
	cmd.Flags().Float64Var(&buildSoundsVolume, "sounds-volume", 0, "Ambient sound volume from 0 to 1")
	cmd.Flags().StringVar(&buildQuoteStyle, "quote-style", "", "Quote style: minimal, centered, top or bottom")
	cmd.Flags().Float64Var(&buildQuoteDuration, "quote-duration", 0, "Seconds each quote stays on screen")
	cmd.Flags().Float64Var(&buildQuoteMinBetween, "quote-min-between", 0, "Minimum seconds between quotes")
	cmd.Flags().Float64Var(&buildQuoteMaxBetween, "quote-max-between", 0, "Maximum seconds between quotes")
	cmd.Flags().BoolVar(&buildQuoteShuffle, "quote-shuffle", false, "Shuffle quote order")
	cmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "Print the resolved plan without invoking ffmpeg")

	return cmd
}

func runBuild(cmd *cobra.Command, _ []string) error {
	rp, err := paths.Resolve(rootDir)
	if err != nil {
		return err
	}

	cfg, err := config.Load(rp.ConfigFile)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if err := applyBuildFlags(cmd, &cfg); err != nil {
		return err
	}
	cfg.Verbose = cfg.Verbose || verbose

	if err := cfg.Validate(); err != nil {
		return err
	}
	rp = paths.ApplyConfig(rp, cfg)

	if cfg.DryRun {
		printPlan(cmd, cfg, rp)
		return nil
	}

	log := logging.New(cfg.Verbose)
	eng, err := engine.New(log, rp.TempDir, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(cfg, rp, eng, log)
	p.OnProgress(func(stage string) {
		fmt.Fprintln(cmd.OutOrStdout(), stageStyle.Render("==> "+stage))
	})

	result, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), headerStyle.Render("Build complete"))
	fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", labelStyle.Render("output:"), result.Output)
	fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", labelStyle.Render("length:"), formatClock(result.Duration))
	fmt.Fprintf(cmd.OutOrStdout(), "  %s %d\n", labelStyle.Render("quotes:"), result.Quotes)
	fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", labelStyle.Render("took:"), result.Elapsed.Round(time.Second))
	return nil
}

func applyBuildFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("duration") {
		cfg.Duration = buildDuration
	}
	if flags.Changed("output") {
		cfg.Output = buildOutput
	}
	if flags.Changed("fps") {
		cfg.FPS = buildFPS
	}
	if flags.Changed("resolution") {
		cfg.Resolution = buildResolution
	}
	if flags.Changed("transition") {
		transition, err := config.ParseTransition(buildTransition)
		if err != nil {
			return err
		}
		cfg.Transition = transition
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = buildBatchSize
	}
	if flags.Changed("seed") {
		cfg.Seed = buildSeed
	}
	if flags.Changed("music-volume") {
		cfg.Music.Volume = buildMusicVolume
	}
	if flags.Changed("music-shuffle") {
		cfg.Music.Shuffle = buildMusicShuffle
	}
	if flags.Changed("sounds-volume") {
		cfg.Sounds.Volume = buildSoundsVolume
	}
	if flags.Changed("quote-style") {
		style, err := config.ParseQuoteStyle(buildQuoteStyle)
		if err != nil {
			return err
		}
		cfg.Quotes.Style = style
	}
	if flags.Changed("quote-duration") {
		cfg.Quotes.Duration = buildQuoteDuration
	}
	if flags.Changed("quote-min-between") {
		cfg.Quotes.MinBetween = buildQuoteMinBetween
	}
	if flags.Changed("quote-max-between") {
		cfg.Quotes.MaxBetween = buildQuoteMaxBetween
	}
	if flags.Changed("quote-shuffle") {
		cfg.Quotes.Shuffle = buildQuoteShuffle
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = buildDryRun
	}
	return nil
}

func printPlan(cmd *cobra.Command, cfg config.Config, rp paths.RunPaths) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render("Build plan"))
	fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("target:"), formatClock(cfg.Duration))
	fmt.Fprintf(out, "  %s %s @ %d fps\n", labelStyle.Render("format:"), cfg.Resolution, cfg.FPS)
	fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("transition:"), cfg.Transition)
	fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("videos:"), rp.VideosDir)
	fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("music:"), rp.MusicDir)
	fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("sounds:"), rp.SoundsDir)
	fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("quotes:"), rp.QuotesDir)
	fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("output:"), rp.OutputFile)
	if cfg.Seed != 0 {
		fmt.Fprintf(out, "  %s %d\n", labelStyle.Render("seed:"), cfg.Seed)
	}
	fmt.Fprintln(out, "No ffmpeg work performed (dry run).")
}

func formatClock(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	return d.Round(time.Second).String()
}

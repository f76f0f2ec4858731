package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/napolitain/solver-theater/internal/loader"
	"github.com/napolitain/solver-theater/internal/models"
	"github.com/napolitain/solver-theater/internal/solver/theater"
)

var (
	configFile string
	quiet      bool
	flagCfg    = models.DefaultRunConfig()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "theater",
		Short: "Theater Loadout Optimizer",
		Long: `Picks which dolls to deploy, which modifications they carry and which
exclusive modifications to upgrade so that the theater score is maximal.`,
		Args: cobra.NoArgs,
		Run:  runSolver,
	}

	f := rootCmd.Flags()
	f.StringVarP(&configFile, "config", "c", "", "Path to YAML run config")
	f.StringVarP(&flagCfg.DataDir, "data", "d", flagCfg.DataDir, "Path to data directory")
	f.StringVarP(&flagCfg.Snapshot, "snapshot", "s", flagCfg.Snapshot, "Path to the exported player snapshot")
	f.IntVarP(&flagCfg.TheaterID, "theater", "t", 0, "Theater area id")
	f.IntVarP(&flagCfg.MaxDolls, "max-dolls", "m", flagCfg.MaxDolls, "Number of deployment slots")
	f.Float64Var(&flagCfg.FairyRatio, "fairy-ratio", flagCfg.FairyRatio, "Fairy multiplier applied to every score")
	f.IntVarP(&flagCfg.UpgradeBudget, "upgrade", "u", flagCfg.UpgradeBudget, "Upgrade currency available")
	f.BoolVarP(&flagCfg.Perfect, "perfect", "p", false, "Solve against a maxed reference inventory")
	f.StringVar(&flagCfg.Solver, "solver", flagCfg.Solver, "Solver backend (bnb or greedy)")
	f.IntVar(&flagCfg.MaxNodes, "max-nodes", flagCfg.MaxNodes, "Branch and bound node limit")
	f.DurationVar(&flagCfg.TimeLimit, "time-limit", flagCfg.TimeLimit, "Branch and bound time limit, 0 for none")
	f.StringVarP(&flagCfg.UnitFilter, "filter", "f", "", `Doll filter expression, e.g. 'Category == "AR" && Level >= 100'`)
	f.StringVar(&flagCfg.LogLevel, "log-level", flagCfg.LogLevel, "Log level (debug, info, warn, error)")
	f.BoolVarP(&quiet, "quiet", "q", false, "Minimal output")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveConfig layers explicitly set flags over the config file or defaults.
func resolveConfig(cmd *cobra.Command) (models.RunConfig, error) {
	cfg := models.DefaultRunConfig()
	if configFile != "" {
		var err error
		if cfg, err = models.LoadRunConfig(configFile); err != nil {
			return cfg, err
		}
	}

	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}
	set("data", func() { cfg.DataDir = flagCfg.DataDir })
	set("snapshot", func() { cfg.Snapshot = flagCfg.Snapshot })
	set("theater", func() { cfg.TheaterID = flagCfg.TheaterID })
	set("max-dolls", func() { cfg.MaxDolls = flagCfg.MaxDolls })
	set("fairy-ratio", func() { cfg.FairyRatio = flagCfg.FairyRatio })
	set("upgrade", func() { cfg.UpgradeBudget = flagCfg.UpgradeBudget })
	set("perfect", func() { cfg.Perfect = flagCfg.Perfect })
	set("solver", func() { cfg.Solver = flagCfg.Solver })
	set("max-nodes", func() { cfg.MaxNodes = flagCfg.MaxNodes })
	set("time-limit", func() { cfg.TimeLimit = flagCfg.TimeLimit })
	set("filter", func() { cfg.UnitFilter = flagCfg.UnitFilter })
	set("log-level", func() { cfg.LogLevel = flagCfg.LogLevel })

	return cfg, cfg.Validate()
}

func setupLogger(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().
		Timestamp().
		Str("run", uuid.NewString()[:8]).
		Logger()
	return nil
}

func fail(format string, args ...any) {
	color.Red(format, args...)
	os.Exit(1)
}

func runSolver(cmd *cobra.Command, args []string) {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("14")).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("14")).
		Padding(0, 2)
	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgYellow)

	cfg, err := resolveConfig(cmd)
	if err != nil {
		fail("Invalid config: %v", err)
	}
	if err := setupLogger(cfg.LogLevel); err != nil {
		fail("Error: %v", err)
	}

	if !quiet {
		fmt.Println(titleStyle.Render("Theater Loadout Optimizer"))
		fmt.Println()
	}

	gd, err := loader.LoadGameData(cfg.DataDir)
	if err != nil {
		fail("Error loading game data: %v", err)
	}
	if !quiet {
		infoColor.Printf("📦 Loaded %d dolls, %d modifications, %d theater areas\n",
			len(gd.Units), len(gd.Mods), len(gd.Theaters))
	}

	var snapshot []byte
	if !cfg.Perfect {
		if snapshot, err = os.ReadFile(cfg.Snapshot); err != nil {
			fail("Error reading snapshot: %v", err)
		}
		if !quiet {
			infoColor.Printf("📄 Snapshot: %s\n", cfg.Snapshot)
		}
	} else if !quiet {
		infoColor.Println("✨ Perfect inventory mode")
	}

	solver, err := theater.SolverFor(cfg)
	if err != nil {
		fail("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !quiet {
		infoColor.Printf("🔄 Solving theater %d with %s (%d slots, fairy x%.2f)...\n\n",
			cfg.TheaterID, cfg.Solver, cfg.MaxDolls, cfg.FairyRatio)
	}
	report, err := theater.NewCommander(gd, solver, snapshot).Run(ctx, cfg)
	if err != nil {
		fail("Error solving: %v", err)
	}

	if !quiet {
		printScenario(report.Scenario)
	}
	printLoadouts(report)
	printUsage(report, cfg.Perfect)

	successColor.Printf("\n✓ Total score: %d (%d dolls, %s", report.TotalScore, len(report.Loadouts), report.Status)
	if report.Nodes > 0 {
		successColor.Printf(", %d nodes", report.Nodes)
	}
	successColor.Println(")")
}

func printScenario(s *models.Scenario) {
	infoColor := color.New(color.FgYellow)
	infoColor.Printf("🎯 %s (%d, %s)\n", s.Name, s.ID, s.Mode)

	weights := make([]string, 0, models.CategoryCount)
	for _, c := range models.AllCategories() {
		weights = append(weights, fmt.Sprintf("%s=%d", c, s.ClassWeight[c.Index()]))
	}
	fmt.Printf("   Class weights: %s\n\n", strings.Join(weights, " "))
}

func printLoadouts(report *theater.Report) {
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"#", "Doll", "Class", "Rank", "Lv", "Skills", "Slot 1", "Slot 2", "Slot 3", "Effect", "Score"}),
	)

	for i, lr := range report.Loadouts {
		row := []string{
			fmt.Sprintf("%d", i+1),
			lr.Name,
			lr.CategoryLabel,
			fmt.Sprintf("%d★", lr.Rank),
			fmt.Sprintf("%d", lr.Level),
			fmt.Sprintf("%d/%d", lr.Skill1, lr.Skill2),
		}
		for _, m := range lr.Mods {
			row = append(row, formatMod(m))
		}
		row = append(row,
			fmt.Sprintf("%d", lr.Effect.For(report.Scenario.Mode)),
			fmt.Sprintf("%d", lr.Score),
		)
		_ = table.Append(row)
	}
	_ = table.Render()
}

func printUsage(report *theater.Report, perfect bool) {
	if len(report.Usage) == 0 {
		return
	}
	label := "🔧 Upgrades:"
	if perfect {
		label = "🔧 Modifications used:"
	}
	fmt.Println("\n" + label)

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Modification", "Rank", "Count"}),
	)
	for _, u := range report.Usage {
		_ = table.Append([]string{
			formatName(u.Name, u.ModID),
			fmt.Sprintf("%d★", u.Rank),
			fmt.Sprintf("%d", u.Count),
		})
	}
	_ = table.Render()
}

func formatMod(m theater.ModChoice) string {
	if m.ID == 0 {
		return "-"
	}
	return fmt.Sprintf("%s +%d", formatName(m.Name, m.ID), m.Level)
}

func formatName(name string, id int) string {
	if name == "" {
		return fmt.Sprintf("#%d", id)
	}
	return name
}

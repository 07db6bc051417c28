package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/TobiSchelling/VoteMatch/internal/cluster"
	"github.com/TobiSchelling/VoteMatch/internal/compose"
	"github.com/TobiSchelling/VoteMatch/internal/config"
	"github.com/TobiSchelling/VoteMatch/internal/database"
	"github.com/TobiSchelling/VoteMatch/internal/election"
	"github.com/TobiSchelling/VoteMatch/internal/match"
	"github.com/TobiSchelling/VoteMatch/internal/output"
	"github.com/TobiSchelling/VoteMatch/internal/server"
	"github.com/TobiSchelling/VoteMatch/internal/session"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "votematch",
	Short:   "Voting advice questionnaires",
	Long:    "VoteMatch imports election theses and party positions and ranks parties and candidates by how well they match a voter's answers.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			setupLogging(slog.LevelInfo)
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		setupLogging(cfg.LogLevel())
		if path != "" {
			slog.Debug("loaded config", "path", path)
		}
		return nil
	},
	SilenceUsage: true,
}

func setupLogging(level slog.Level) {
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level, AddSource: verbose})
	slog.SetDefault(slog.New(handler))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(electionsCmd)
	rootCmd.AddCommand(thesesCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(blocsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sessionsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("votematch", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/votematch/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Import an election next with: votematch import <file>")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		return output.Table(stats)
	},
}

// --- election commands ---

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import or replace an election from a YAML definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := election.Load(args[0], cfg.Scoring.Decisions)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.SaveElection(e); err != nil {
			return fmt.Errorf("saving election: %w", err)
		}
		fmt.Printf("Imported %s (%s): %d theses, %d parties, %d candidates\n",
			e.Name, e.ID, len(e.Theses), len(e.Parties), len(e.Candidates))
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check an election definition without importing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := election.Load(args[0], cfg.Scoring.Decisions)
		if err != nil {
			return err
		}
		fmt.Printf("OK: %s (%s), %d decisions, %d theses, %d parties, %d candidates\n",
			e.Name, e.ID, e.Decisions, len(e.Theses), len(e.Parties), len(e.Candidates))
		return nil
	},
}

var electionsCmd = &cobra.Command{
	Use:   "elections",
	Short: "List imported elections",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.ListElections()
		if err != nil {
			return err
		}
		return output.Table(items)
	},
}

var thesesCmd = &cobra.Command{
	Use:   "theses <election>",
	Short: "List the theses of an election",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		e, err := getElection(db, args[0])
		if err != nil {
			return err
		}
		return output.Table(e)
	},
}

// --- match command ---

var (
	answersPath    string
	showCandidates bool
	asMarkdown     bool
)

var matchCmd = &cobra.Command{
	Use:   "match <election>",
	Short: "Rank parties and candidates against an answers file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ratings, err := election.LoadAnswers(answersPath)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		e, err := getElection(db, args[0])
		if err != nil {
			return err
		}
		if err := e.CheckAnswers(ratings); err != nil {
			return err
		}

		out, err := session.Evaluate(e, ratings)
		if err != nil {
			return err
		}

		if asMarkdown {
			fmt.Print(compose.Report(out, compose.Options{Candidates: showCandidates}))
			return nil
		}

		fmt.Printf("%s: %d of %d theses answered, %d skipped\n\n", e.Name, out.Rated, out.Total, out.Skipped)
		fmt.Println("Parties:")
		if err := output.Table(out.Parties); err != nil {
			return err
		}
		if showCandidates {
			fmt.Println("\nCandidates:")
			return output.Table(out.Candidates)
		}
		return nil
	},
}

func init() {
	matchCmd.Flags().StringVarP(&answersPath, "answers", "a", "", "YAML file mapping thesis IDs to answers")
	matchCmd.Flags().BoolVar(&showCandidates, "candidates", false, "Also rank candidates")
	matchCmd.Flags().BoolVar(&asMarkdown, "markdown", false, "Print a Markdown report with a thesis by thesis comparison")
	matchCmd.MarkFlagRequired("answers")
}

// --- blocs command ---

var (
	blocThreshold  float64
	blocCandidates bool
)

var blocsCmd = &cobra.Command{
	Use:   "blocs <election>",
	Short: "Group parties or candidates by how similar their positions are",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		e, err := getElection(db, args[0])
		if err != nil {
			return err
		}

		kind := match.KindParty
		if blocCandidates {
			kind = match.KindCandidate
		}
		return output.Table(cluster.ForElection(e, kind, blocThreshold))
	},
}

func init() {
	blocsCmd.Flags().Float64Var(&blocThreshold, "threshold", cluster.DefaultThreshold, "Largest spread allowed inside a bloc")
	blocsCmd.Flags().BoolVar(&blocCandidates, "candidates", false, "Group candidates instead of parties")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting server at http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, db, cfg)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- sessions command ---

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored rating sessions",
}

var olderThan time.Duration

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete sessions that have not changed recently",
	RunE: func(cmd *cobra.Command, args []string) error {
		maxAge := time.Duration(cfg.Sessions.MaxAge)
		if cmd.Flags().Changed("older-than") {
			maxAge = olderThan
		}
		if maxAge <= 0 {
			return errors.New("--older-than must be positive")
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := session.NewStore(db).Prune(maxAge)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d session(s) older than %s\n", n, maxAge)
		return nil
	},
}

func init() {
	sessionsPruneCmd.Flags().DurationVar(&olderThan, "older-than", 0, "Age cutoff (defaults to sessions.max_age)")
	sessionsCmd.AddCommand(sessionsPruneCmd)
}

func getElection(db *database.DB, id string) (*election.Election, error) {
	e, err := db.GetElection(id)
	if err != nil {
		return nil, fmt.Errorf("loading election: %w", err)
	}
	if e == nil {
		return nil, fmt.Errorf("election %s not found, see: votematch elections", id)
	}
	return e, nil
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(cfg.DatabasePath())
}

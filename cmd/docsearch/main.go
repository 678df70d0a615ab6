package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/knowledge-engine/docsearch/internal/api"
	"github.com/knowledge-engine/docsearch/internal/config"
	"github.com/knowledge-engine/docsearch/internal/engine"
	"github.com/knowledge-engine/docsearch/internal/storage"
)

type globalFlags struct {
	configPath string
	corpusPath string
	logLevel   string
	jsonOutput bool
}

func main() {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "docsearch",
		Short:         "Harvest Reddit and arXiv documents and rank them with TF-IDF",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file path")
	rootCmd.PersistentFlags().StringVar(&flags.corpusPath, "corpus", "", "Corpus file (.json or .tsv), overrides config")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level, overrides config")
	rootCmd.PersistentFlags().BoolVar(&flags.jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(
		newServeCmd(&flags),
		newHarvestCmd(&flags),
		newSearchCmd(&flags),
		newAuthorsCmd(&flags),
		newConcordanceCmd(&flags),
		newTermsCmd(&flags),
		newListCmd(&flags),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app bundles what every command needs
type app struct {
	cfg    *config.Config
	log    *logrus.Entry
	store  *storage.FileStorage
	engine *engine.Engine
	out    io.Writer
	json   bool
}

func setup(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	cfg, err := config.LoadFile(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.corpusPath != "" {
		cfg.Corpus.Path = flags.corpusPath
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}

	logger := logrus.New()
	if cfg.Log.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)
	entry := logger.WithField("service", "docsearch")

	store, err := storage.NewFileStorage(cfg.Corpus.Path, entry.WithField("component", "file_storage"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	eng, err := engine.NewEngine(cfg, entry, store)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	return &app{
		cfg:    cfg,
		log:    entry,
		store:  store,
		engine: eng,
		out:    cmd.OutOrStdout(),
		json:   flags.jsonOutput,
	}, nil
}

// open loads the stored corpus, harvesting first when none exists
func open(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	a, err := setup(cmd, flags)
	if err != nil {
		return nil, err
	}
	if err := a.engine.Bootstrap(cmd.Context()); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.store.Close()

			if err := a.engine.Bootstrap(ctx); err != nil {
				a.log.WithError(err).Warn("Bootstrap failed, serving the collection as it stands")
			}

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			server := api.NewServer(a.engine, a.log.WithField("component", "api"))

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start(addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				a.log.Info("Shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides config")
	return cmd
}

func newHarvestCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Fetch new documents from the configured sources and save the corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.store.Close()

			exists, err := a.store.Exists()
			if err != nil {
				return err
			}
			if exists {
				if err := a.engine.Bootstrap(cmd.Context()); err != nil {
					return err
				}
			}

			report, err := a.engine.Harvest(cmd.Context())
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(report)
			}
			for name, st := range report.Sources {
				fmt.Fprintf(a.out, "%-8s fetched %d, added %d, dropped %d", name, st.Fetched, st.Added, st.Dropped)
				if st.LastError != "" {
					fmt.Fprintf(a.out, " (error: %s)", st.LastError)
				}
				fmt.Fprintln(a.out)
			}
			fmt.Fprintf(a.out, "%d documents added, %d in %s\n", report.Added, report.Total, a.store.Path())
			return nil
		},
	}
}

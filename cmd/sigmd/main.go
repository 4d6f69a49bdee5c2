package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Napageneral/sigmd/internal/config"
	"github.com/Napageneral/sigmd/internal/logging"
	"github.com/Napageneral/sigmd/internal/pipeline"
	"github.com/Napageneral/sigmd/internal/render"
	"github.com/Napageneral/sigmd/internal/store"
	"github.com/Napageneral/sigmd/internal/watch"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"

	jsonOutput   bool
	configPath   string
	sourceFolder string
	outputFolder string
	verbose      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sigmd",
		Short: "Signal export to per-person message logs",
		Long: `Sigmd reads a Signal desktop SQLite export (conversations.csv,
messages.csv, message_attachments.csv), resolves every conversation to a
named person, and writes per-person, per-day markdown message logs.`,
	}

	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the settings file (default: config dir)")

	// version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(map[string]string{
					"version": version,
					"commit":  commit,
					"date":    buildDate,
				})
			} else {
				fmt.Printf("sigmd %s (%s, %s)\n", version, commit, buildDate)
			}
		},
	})

	// init command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Initialize sigmd config and data directories",
		Run: func(cmd *cobra.Command, args []string) {
			configDir, err := config.GetConfigDir()
			if err != nil {
				fatal("Failed to get config directory: %v", err)
			}
			dataDir, err := config.GetDataDir()
			if err != nil {
				fatal("Failed to get data directory: %v", err)
			}
			if err := os.MkdirAll(configDir, 0755); err != nil {
				fatal("Failed to create config directory: %v", err)
			}
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				fatal("Failed to create data directory: %v", err)
			}

			path, err := config.DefaultPath()
			if err != nil {
				fatal("%v", err)
			}
			wrote := false
			if _, err := os.Stat(path); os.IsNotExist(err) {
				starter := &config.Config{
					SourceFolder: "",
					OutputFolder: "",
					Me:           "",
					CreatePeople: true,
				}
				if err := starter.Save(path); err != nil {
					fatal("Failed to write starter config: %v", err)
				}
				wrote = true
			}

			if jsonOutput {
				printJSON(map[string]any{
					"ok":          true,
					"config_dir":  configDir,
					"data_dir":    dataDir,
					"config_path": path,
					"created":     wrote,
				})
				return
			}
			fmt.Printf("Config dir: %s\n", configDir)
			fmt.Printf("Data dir:   %s\n", dataDir)
			if wrote {
				fmt.Printf("Wrote starter config to %s (fill in source_folder, me and your people roster)\n", path)
			} else {
				fmt.Printf("Config already exists at %s\n", path)
			}
		},
	})

	// export command
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Convert the export CSVs into per-person markdown logs",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig()
			if err != nil {
				fatal("%v", err)
			}
			stats, err := runExport(cfg)
			if err != nil {
				fatal("%v", err)
			}
			if jsonOutput {
				printJSON(stats)
				return
			}
			fmt.Printf("Conversations: %d rows, %d resolved, %d created, %d skipped\n",
				stats.Conversations.Rows, stats.Conversations.Resolved,
				stats.Conversations.Created, stats.Conversations.Skipped)
			fmt.Printf("Messages:      %d rows, %d retained (%d no sender, %d empty)\n",
				stats.Messages.Rows, stats.Messages.Retained,
				stats.Messages.DroppedNoSender, stats.Messages.DroppedEmpty)
			fmt.Printf("Attachments:   %d embedded, %d joined from secondary export\n",
				stats.Messages.Attachments, stats.Attachments.Attached)
		},
	}
	exportCmd.Flags().StringVar(&sourceFolder, "source", "", "Export folder (overrides config)")
	exportCmd.Flags().StringVar(&outputFolder, "output", "", "Output folder (overrides config)")
	exportCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log row-level drops and skips")
	rootCmd.AddCommand(exportCmd)

	// people command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "people",
		Short: "List the resolved roster from the last run",
		Run: func(cmd *cobra.Command, args []string) {
			path, err := store.DefaultPath()
			if err != nil {
				fatal("%v", err)
			}
			s, err := store.Open(path)
			if err != nil {
				fatal("Failed to open roster cache: %v", err)
			}
			defer s.Close()

			people, err := s.LoadPeople()
			if err != nil {
				fatal("Failed to load roster: %v", err)
			}
			if jsonOutput {
				printJSON(people)
				return
			}
			if len(people) == 0 {
				fmt.Println("No people cached yet. Run 'sigmd export' first.")
				return
			}
			for _, p := range people {
				line := p.Slug
				if p.FullName != "" {
					line += "\t" + p.FullName
				}
				if p.Mobile != "" {
					line += "\t" + p.Mobile
				}
				if p.ServiceID != "" {
					line += "\tservice:" + p.ServiceID
				}
				fmt.Println(line)
			}
		},
	})

	// watch command
	var debounceSec int
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-export whenever the source CSVs change",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig()
			if err != nil {
				fatal("%v", err)
			}
			if cfg.SourceFolder == "" {
				fatal("config has no source_folder")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			log := logging.New(os.Stderr, shortRunID(), verbose)
			err = watch.Watch(ctx, watch.Options{
				Folder:   cfg.SourceFolder,
				Debounce: time.Duration(debounceSec) * time.Second,
				Log:      log,
			}, func() {
				// reload so roster edits between runs are picked up
				cfg, err := loadConfig()
				if err != nil {
					log.Error("config reload failed", "error", err)
					return
				}
				if _, err := runExport(cfg); err != nil {
					log.Error("export failed", "error", err)
				}
			})
			if err != nil {
				fatal("%v", err)
			}
		},
	}
	watchCmd.Flags().IntVar(&debounceSec, "debounce", 2, "Seconds to wait after a change before re-exporting")
	watchCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log row-level drops and skips")
	rootCmd.AddCommand(watchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if sourceFolder != "" {
		cfg.SourceFolder = sourceFolder
	}
	if outputFolder != "" {
		cfg.OutputFolder = outputFolder
	}
	if cfg.SourceFolder == "" {
		return nil, fmt.Errorf("no source folder: set source_folder in the config or pass --source")
	}
	if cfg.OutputFolder == "" {
		cfg.OutputFolder = "messages"
	}
	return cfg, nil
}

func runExport(cfg *config.Config) (pipeline.Stats, error) {
	runID := shortRunID()
	log := logging.New(os.Stderr, runID, verbose)

	ctx, err := pipeline.NewContext(cfg, log)
	if err != nil {
		return pipeline.Stats{}, err
	}
	ctx.RunID = runID

	renderer := &render.Markdown{OutputFolder: cfg.OutputFolder}
	_, stats, err := pipeline.Export(ctx, renderer)
	if err != nil {
		return stats, err
	}

	// Best effort: cache the resolved roster for `sigmd people`.
	if path, err := store.DefaultPath(); err == nil {
		if s, err := store.Open(path); err == nil {
			if err := s.SavePeople(ctx.Dir.People()); err != nil {
				log.Warn("failed to cache roster", "error", err)
			}
			s.Close()
		} else {
			log.Warn("failed to open roster cache", "error", err)
		}
	}

	return stats, nil
}

func shortRunID() string {
	return uuid.NewString()[:8]
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

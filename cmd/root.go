package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/davell/repopatch/internal/output"
	"github.com/davell/repopatch/internal/registry"
	"github.com/davell/repopatch/internal/remote"
	"github.com/davell/repopatch/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "repopatch",
	Short: "Repopatch - preview and apply unified diffs against file sources",
	Long: `repopatch registers file sources (a directory on a repopatch server,
a zip archive, or a local folder), resolves the files a unified diff
touches, and renders a preview of the patch against them. Remote
sources can also have the patch applied server-side.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/repopatch/config.yaml)")
	rootCmd.PersistentFlags().String("endpoint", "", "Server endpoint (persisted for later runs)")
}

func initConfig() {
	// A .env next to the binary's cwd can hold endpoint overrides.
	_ = godotenv.Load()

	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "repopatch")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("REPOPATCH")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "repopatch")

	viper.SetDefault("state_dir", defaultConfigDir)
	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "repopatch.db"))
	viper.SetDefault("endpoint", "http://localhost:3000")
	viper.SetDefault("preview.debounce_ms", 500)
	viper.SetDefault("serve.port", 3000)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// Store and registry are initialized lazily so config/version
	// commands run without a db.
}

// rootRun handles `repopatch` with no subcommand: list sources if any
// are registered, otherwise show help.
func rootRun(cmd *cobra.Command) error {
	s, err := getStore()
	if err != nil {
		return cmd.Help()
	}

	reg, err := registry.Load(context.Background(), s)
	if err != nil {
		return cmd.Help()
	}
	if len(reg.Sources()) == 0 {
		return cmd.Help()
	}

	return sourceListRun()
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(context.Background()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// loadRegistry loads the source registry backed by the shared store.
func loadRegistry(ctx context.Context) (store.Store, *registry.Registry, error) {
	s, err := getStore()
	if err != nil {
		return nil, nil, err
	}
	reg, err := registry.Load(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	return s, reg, nil
}

// resolveEndpoint picks the server endpoint: an explicit --endpoint flag
// wins and is persisted for later runs; otherwise the stored setting;
// otherwise the config default.
func resolveEndpoint(ctx context.Context, s store.Store) (string, error) {
	if flag := rootCmd.PersistentFlags().Lookup("endpoint"); flag != nil && flag.Changed {
		endpoint := flag.Value.String()
		if !dryRun {
			if err := s.SetSetting(ctx, store.SettingEndpoint, endpoint); err != nil {
				return "", fmt.Errorf("persist endpoint: %w", err)
			}
		}
		return endpoint, nil
	}

	stored, err := s.GetSetting(ctx, store.SettingEndpoint)
	if err != nil {
		return "", err
	}
	if stored != "" {
		return stored, nil
	}
	return viper.GetString("endpoint"), nil
}

// getClient builds a remote client for the effective endpoint.
func getClient(ctx context.Context, s store.Store) (*remote.Client, error) {
	endpoint, err := resolveEndpoint(ctx, s)
	if err != nil {
		return nil, err
	}
	return remote.NewClient(endpoint)
}

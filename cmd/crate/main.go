package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/crate/internal/util"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string
	cfg     *Config

	rootCmd = &cobra.Command{
		Use:   "crate",
		Short: "crate - a local music collection store",
		Long: `crate indexes audio files into per-collection SQLite stores with a
revision log, fuzzy search, loved items, playlists and a read-only HTTP API.`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults(viper.GetViper())

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/crate.yaml or ./crate.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the collection databases")
	rootCmd.PersistentFlags().StringP("collection", "c", "", "collection id")
	rootCmd.PersistentFlags().String("user-db", "", "user database file (default <data-dir>/user.db)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("collection", rootCmd.PersistentFlags().Lookup("collection"))
	viper.BindPFlag("user_db", rootCmd.PersistentFlags().Lookup("user-db"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("crate")
		viper.SetConfigType("yaml")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("CRATE")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.DebugLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

// commandFlags maps per-command flags to their config keys. They are bound
// for the command being run only, so commands can share a key.
var commandFlags = map[string]string{
	"concurrency":     "concurrency",
	"probe-durations": "probe_durations",
	"ext":             "additional_exts",
	"debounce":        "watch_debounce",
	"listen":          "listen",
}

func setup(cmd *cobra.Command, args []string) error {
	for flag, key := range commandFlags {
		if f := cmd.Flags().Lookup(flag); f != nil {
			viper.BindPFlag(key, f)
		}
	}

	util.SetColors(util.ColorsSupported())
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	var err error
	cfg, err = loadConfig(viper.GetViper())
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

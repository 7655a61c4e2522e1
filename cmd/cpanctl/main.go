// Package main implements the cpanctl command-line tool for maintaining a
// private CPAN-style repository layered over a mirrored archive.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/cpanctl/cpanctl/internal/cpan"
	"github.com/cpanctl/cpanctl/internal/repo"
)

const defaultConfigPath = "/etc/cpanctl/cpanctl.toml"

var (
	// Build information - can be set via build flags
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"

	// Command-line flags
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "cpanctl",
	Short: "Maintain a private CPAN repository over a mirrored archive",
	Long: `cpanctl stages privately built distributions in a repository and merges
them into a mirrored CPAN archive: files are copied into the author tree,
per-author CHECKSUMS manifests are regenerated, and the pending records are
merged into modules/02packages.details.txt.gz.`,
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a distribution file to the private repository",
	Long: `Add a distribution file to the private repository.

The file is copied into the author's directory under the repository root
and a record is appended to the module list.

Example:
  cpanctl add --module Some::Module --author AUTHORID \
      --version 0.01 --file Some-Module-0.01.tar.gz`,
	Run: runAdd,
}

var injectCmd = &cobra.Command{
	Use:   "inject",
	Short: "Inject repository files into the mirrored archive",
	Long: `Copy every pending distribution file into the mirrored archive,
regenerate the CHECKSUMS manifest of each touched author directory, and
merge the pending records into the package index.`,
	Run: runInject,
}

var updateIndexCmd = &cobra.Command{
	Use:   "update-index",
	Short: "Merge the module list into the archive's package index",
	Long: `Merge the repository's pending module records into the archive's
02packages.details.txt.gz without copying any files.`,
	Run: runUpdateIndex,
}

var remoteCheckCmd = &cobra.Command{
	Use:   "remote-check",
	Short: "Probe the configured remote sites in order",
	Long:  `Try each configured remote site until one responds and report it.`,
	Run:   runRemoteCheck,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long:  `Validate the configuration file and report any issues.`,
	Run:   runValidate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information including build details",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("cpanctl %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", buildDate)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(injectCmd)
	rootCmd.AddCommand(updateIndexCmd)
	rootCmd.AddCommand(remoteCheckCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "configuration file path")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("verbose-errors", false, "show detailed error information including stack traces")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress all output except for errors")

	addCmd.Flags().String("module", "", "module name (required)")
	addCmd.Flags().String("author", "", "author identifier (required)")
	addCmd.Flags().String("version", "", "module version (required)")
	addCmd.Flags().String("file", "", "distribution file to add (required)")
}

// formatError returns a human-friendly error message, optionally with stack trace
func formatError(err error, verbose bool) string {
	if verbose {
		return fmt.Sprintf("%+v", err) // Full details with stack traces
	}

	flattened := errors.FlattenDetails(err)
	if flattened != "" {
		return flattened
	}

	return err.Error()
}

// loadConfig decodes and applies the configuration, exiting on failure.
func loadConfig(cmd *cobra.Command) *repo.Config {
	verboseErrors, _ := cmd.Flags().GetBool("verbose-errors")

	config := repo.NewConfig()
	meta, err := toml.DecodeFile(configPath, config)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Error("configuration file not found", "path", configPath)
			slog.Info("Please create a configuration file at the default location or specify one with the --config flag.")
			os.Exit(1)
		}
		slog.Error("failed to decode config file", "error", formatError(err, verboseErrors), "path", configPath)
		if !verboseErrors {
			slog.Info("run with --verbose-errors for detailed stack traces")
		}
		os.Exit(1)
	}

	// Undecoded keys usually mean a misspelled section
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		slog.Error("configuration contains unknown keys", "keys", fmt.Sprintf("%v", undecoded), "path", configPath)
		os.Exit(1)
	}

	if err := config.Log.Apply(); err != nil {
		slog.Error("failed to apply log config", "error", err)
		os.Exit(1)
	}

	if logLevel != "" {
		config.Log.Level = logLevel
		if err := config.Log.Apply(); err != nil {
			slog.Error("failed to apply command-line log level", "level", logLevel, "error", err)
			os.Exit(1)
		}
	}

	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		config.Log.Level = "error"
		if err := config.Log.Apply(); err != nil {
			slog.Error("failed to apply quiet log level", "error", err)
			os.Exit(1)
		}
	}

	if err := config.Check(); err != nil {
		slog.Error("invalid configuration", "error", err, "path", configPath)
		os.Exit(1)
	}

	return config
}

// newRepo wires a Repo with its manifest updater from the configuration.
func newRepo(cmd *cobra.Command, config *repo.Config) *repo.Repo {
	var signer *cpan.Signer
	if config.PGP.SignManifests {
		var err error
		signer, err = cpan.NewSignerFromFile(config.PGP.KeyPath, nil)
		if err != nil {
			slog.Error("failed to load signing key", "path", config.PGP.KeyPath, "error", err)
			os.Exit(1)
		}
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	updater := cpan.NewUpdater(config.FileMode(), signer)
	return repo.New(config, updater, quiet)
}

func fail(cmd *cobra.Command, msg string, err error) {
	verboseErrors, _ := cmd.Flags().GetBool("verbose-errors")
	slog.Error(msg, "error", formatError(err, verboseErrors))
	if !verboseErrors {
		slog.Info("run with --verbose-errors for detailed stack traces")
	}
	os.Exit(1)
}

func runAdd(cmd *cobra.Command, _ []string) {
	config := loadConfig(cmd)
	r := newRepo(cmd, config)

	module, _ := cmd.Flags().GetString("module")
	author, _ := cmd.Flags().GetString("author")
	modVersion, _ := cmd.Flags().GetString("version")
	file, _ := cmd.Flags().GetString("file")

	if err := r.List().Load(); err != nil {
		fail(cmd, "failed to load module list", err)
	}
	err := r.Add(repo.AddRequest{
		Module:  module,
		Author:  author,
		Version: modVersion,
		File:    file,
	})
	if err != nil {
		fail(cmd, "add failed", err)
	}
	if err := r.List().Save(); err != nil {
		fail(cmd, "failed to save module list", err)
	}
}

func runInject(cmd *cobra.Command, _ []string) {
	config := loadConfig(cmd)
	r := newRepo(cmd, config)

	if err := r.Inject(); err != nil {
		fail(cmd, "inject failed", err)
	}
}

func runUpdateIndex(cmd *cobra.Command, _ []string) {
	config := loadConfig(cmd)
	r := newRepo(cmd, config)

	if err := r.UpdateIndex(); err != nil {
		fail(cmd, "index update failed", err)
	}
}

func runRemoteCheck(cmd *cobra.Command, _ []string) {
	config := loadConfig(cmd)
	r := newRepo(cmd, config)

	site, err := r.SelectRemote(context.Background())
	if err != nil {
		fail(cmd, "no remote site reachable", err)
	}
	fmt.Println(site)
}

func runValidate(cmd *cobra.Command, _ []string) {
	verboseErrors, _ := cmd.Flags().GetBool("verbose-errors")

	config := repo.NewConfig()
	meta, err := toml.DecodeFile(configPath, config)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Error("configuration file not found", "path", configPath)
			os.Exit(1)
		}
		slog.Error("failed to decode config file", "error", formatError(err, verboseErrors), "path", configPath)
		os.Exit(1)
	}

	var validationErrors []error

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		validationErrors = append(validationErrors, errors.Newf("unknown keys: %v", undecoded))
	}
	if err := config.Log.Apply(); err != nil {
		validationErrors = append(validationErrors, errors.Wrap(err, "log config"))
	}
	if err := config.Check(); err != nil {
		validationErrors = append(validationErrors, errors.Wrap(err, "global config"))
	}

	if len(validationErrors) > 0 {
		slog.Error("the toml configuration file is not valid")
		for _, err := range validationErrors {
			slog.Error(err.Error())
		}
		os.Exit(1)
	}

	slog.Info("the toml configuration file passes validation checks")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

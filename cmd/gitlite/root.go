// Package main provides the gitlite CLI binary for working with repositories,
// files, branches and merge requests backed by a SQL store.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gitlite/gitlite/internal/db"
	"github.com/gitlite/gitlite/pkg/vcs"
)

var rootCmd = &cobra.Command{
	Use:   "gitlite",
	Short: "Lightweight version control over a SQL store",
	Long: `gitlite manages repositories of versioned files without a working tree.

Every file carries an append-only sequence of immutable versions; branches are
pointer sets selecting one version per file. Merges detect diverging files and
surface them as conflicts to resolve instead of auto-merging line by line.

Configuration flags can also be set through GITLITE_* environment variables,
e.g. GITLITE_DB_TYPE=postgres GITLITE_DB_DSN=...`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("db-type", "sqlite", "Database backend: sqlite, postgres, mysql")
	flags.String("db-dsn", "", "Database DSN (sqlite defaults to ./gitlite.db)")
	flags.StringP("output", "o", "table", "Output format: table, json, yaml")
	flags.Bool("verbose", false, "Log SQL statements")

	viper.SetEnvPrefix("GITLITE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	cobra.CheckErr(viper.BindPFlags(flags))

	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(branchCmd)
	rootCmd.AddCommand(mergeCmd)
}

// newService opens the configured database and migrates the schema.
func newService() (*vcs.Service, error) {
	handle, err := db.Connect(db.Config{
		Type:    viper.GetString("db-type"),
		DSN:     viper.GetString("db-dsn"),
		Verbose: viper.GetBool("verbose"),
	})
	if err != nil {
		return nil, err
	}
	svc := vcs.NewService(handle, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))
	if err := svc.AutoMigrate(); err != nil {
		return nil, err
	}
	return svc, nil
}

// parseID parses a positional numeric id argument.
func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return id, nil
}

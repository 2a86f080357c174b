// Package cli implements the recordsql command: find, get and delete rows of a configured connection
// through a records.Model and print them as JSON.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/yriy-kuskov/cakereact-core/records"
)

const (
	defaultConfigPath = "records.yaml"
	defaultPrimaryKey = "id"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Connection string
	PrimaryKey string
	Verbose    bool
}

// NewRootCommand creates the root command of recordsql.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "recordsql",
		Short: "Query tables through records models",
		Long: `recordsql opens a connection from a records configuration file and runs
find, get and delete through a records.Model, printing JSON to stdout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", defaultConfigPath, "configuration file")
	cmd.PersistentFlags().StringVar(&opts.Connection, "connection", records.DefaultConnection, "connection name")
	cmd.PersistentFlags().StringVar(&opts.PrimaryKey, "primary-key", defaultPrimaryKey, "primary key column")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log SQL statements to stderr")

	cmd.AddCommand(NewFindCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))

	return cmd
}

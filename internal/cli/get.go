package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yriy-kuskov/cakereact-core/records"
)

// ErrRowNotFound is returned by get when no row has the given primary key.
var ErrRowNotFound = errors.New("row not found")

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Print one row by primary key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), rootOpts, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			entity, err := s.model.FindByID(cmd.Context(), args[1], records.QueryOptions{})
			if err != nil {
				return err
			}

			if entity == nil {
				return fmt.Errorf("%w: %s %s=%s", ErrRowNotFound, args[0], rootOpts.PrimaryKey, args[1])
			}

			return writeJSON(cmd.OutOrStdout(), entity)
		},
	}
}

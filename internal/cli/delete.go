package cli

import (
	"github.com/spf13/cobra"
)

// DeleteResult is printed by the delete command.
type DeleteResult struct {
	Table   string `json:"table"`
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Delete one row by primary key",
		Long:  "Delete one row by primary key. Deleting a missing row is not an error; it prints deleted=false.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), rootOpts, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			deleted, err := s.model.Delete(cmd.Context(), args[1])
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), DeleteResult{Table: args[0], ID: args[1], Deleted: deleted})
		},
	}
}

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yriy-kuskov/cakereact-core/records"
)

const nullLiteral = "null"

var (
	// ErrInvalidWhere is returned for a --where value that is not column=value.
	ErrInvalidWhere = errors.New("invalid --where, want column=value")

	// ErrInvalidOrder is returned for an --order value that is not column[:asc|desc].
	ErrInvalidOrder = errors.New("invalid --order, want column[:asc|desc]")
)

// FindOptions holds the flags of the find command.
type FindOptions struct {
	Where []string
	Order string
	Limit int
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FindOptions{}

	cmd := &cobra.Command{
		Use:   "find <table>",
		Short: "List rows matching conditions",
		Long: `List the rows of a table as a JSON array.

--where may be repeated. "null" matches NULL and a comma separated value matches any of its items:

  recordsql find products --where category_id=1,2 --where deleted_at=null --order price:desc --limit 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd, rootOpts, opts, args[0])
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "condition column=value (repeatable)")
	cmd.Flags().StringVarP(&opts.Order, "order", "o", "", "sort column[:asc|desc]")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", 0, "maximum number of rows (0 means no limit)")

	return cmd
}

func runFind(cmd *cobra.Command, rootOpts *RootOptions, opts *FindOptions, table string) error {
	query, err := opts.query()
	if err != nil {
		return err
	}

	s, err := openSession(cmd.Context(), rootOpts, table, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	entities, err := s.model.Find(cmd.Context(), query)
	if err != nil {
		return err
	}

	return writeJSON(cmd.OutOrStdout(), entities)
}

func (o *FindOptions) query() (records.QueryOptions, error) {
	conditions, err := parseWhere(o.Where)
	if err != nil {
		return records.QueryOptions{}, err
	}

	order, err := parseOrder(o.Order)
	if err != nil {
		return records.QueryOptions{}, err
	}

	return records.QueryOptions{
		Conditions: conditions,
		Order:      order,
		Limit:      o.Limit,
	}, nil
}

func parseWhere(values []string) (records.Conditions, error) {
	if len(values) == 0 {
		return nil, nil
	}

	conditions := make(records.Conditions, len(values))

	for _, raw := range values {
		column, value, ok := strings.Cut(raw, "=")
		column = strings.TrimSpace(column)
		if !ok || column == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidWhere, raw)
		}

		switch {
		case value == nullLiteral:
			conditions[column] = nil
		case strings.Contains(value, ","):
			conditions[column] = strings.Split(value, ",")
		default:
			conditions[column] = value
		}
	}

	return conditions, nil
}

func parseOrder(raw string) (*records.Order, error) {
	if raw == "" {
		return nil, nil //nolint:nilnil
	}

	column, direction, _ := strings.Cut(raw, ":")
	if column == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrder, raw)
	}

	switch strings.ToLower(direction) {
	case "", string(records.Asc), string(records.Desc):
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrder, raw)
	}

	return records.OrderBy(column, records.ParseDirection(direction)), nil
}

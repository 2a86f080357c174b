package cli_test

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/yriy-kuskov/cakereact-core/internal/cli"
	"github.com/yriy-kuskov/cakereact-core/records/config"
)

// setupConfig creates a sqlite database with a products table and a config file pointing at it.
func setupConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	dsn := filepath.Join(dir, "shop.db")

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)

	for _, stmt := range []string{
		`CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT, price INTEGER, category_id INTEGER)`,
		`INSERT INTO products (id, name, price, category_id) VALUES
			(1, 'Tea', 100, 1),
			(2, 'Coffee', 250, 1),
			(3, 'Cake', 350, NULL)`,
	} {
		_, err = db.ExecContext(context.Background(), stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	path := filepath.Join(dir, "records.yaml")
	document := fmt.Sprintf("connections:\n  default:\n    driver: %s\n    dsn: %s\n", config.DriverSQLite, dsn)
	require.NoError(t, os.WriteFile(path, []byte(document), 0o600))

	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := cli.NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return stdout.String(), err
}

func decode(t *testing.T, output string, v any) {
	t.Helper()
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(output, v))
}

func Test_RootCommand_Has_Subcommands_And_Flags(t *testing.T) {
	cmd := cli.NewRootCommand()

	for _, name := range []string{"find", "get", "delete"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	assert.Equal(t, "records.yaml", cmd.PersistentFlags().Lookup("config").DefValue)
	assert.Equal(t, "default", cmd.PersistentFlags().Lookup("connection").DefValue)
	assert.Equal(t, "id", cmd.PersistentFlags().Lookup("primary-key").DefValue)
}

func Test_Find_Prints_Matching_Rows(t *testing.T) {
	// setup
	configPath := setupConfig(t)

	// act
	output, err := execute(t, "--config", configPath, "find", "products",
		"--where", "category_id=1", "--order", "price:desc", "--limit", "5")

	// assert
	require.NoError(t, err)

	var rows []map[string]any
	decode(t, output, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "Coffee", rows[0]["name"])
	assert.Equal(t, "Tea", rows[1]["name"])
}

func Test_Find_With_Null_And_List_Conditions(t *testing.T) {
	configPath := setupConfig(t)

	nullOutput, err := execute(t, "-c", configPath, "find", "products", "--where", "category_id=null")
	require.NoError(t, err)

	var nullRows []map[string]any
	decode(t, nullOutput, &nullRows)
	require.Len(t, nullRows, 1)
	assert.Equal(t, "Cake", nullRows[0]["name"])

	listOutput, err := execute(t, "-c", configPath, "find", "products", "-w", "id=1,3", "-o", "id")
	require.NoError(t, err)

	var listRows []map[string]any
	decode(t, listOutput, &listRows)
	require.Len(t, listRows, 2)
	assert.Equal(t, "Tea", listRows[0]["name"])
	assert.Equal(t, "Cake", listRows[1]["name"])
}

func Test_Find_When_Flags_Are_Invalid(t *testing.T) {
	configPath := setupConfig(t)

	testCases := []struct {
		description string
		args        []string
		expectedErr error
	}{
		{description: "where without equals", args: []string{"--where", "name"}, expectedErr: cli.ErrInvalidWhere},
		{description: "where without column", args: []string{"--where", "=Tea"}, expectedErr: cli.ErrInvalidWhere},
		{description: "order direction", args: []string{"--order", "name:sideways"}, expectedErr: cli.ErrInvalidOrder},
		{description: "order without column", args: []string{"--order", ":asc"}, expectedErr: cli.ErrInvalidOrder},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			args := append([]string{"-c", configPath, "find", "products"}, tc.args...)

			_, err := execute(t, args...)

			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func Test_Get_Prints_One_Row(t *testing.T) {
	configPath := setupConfig(t)

	output, err := execute(t, "-c", configPath, "get", "products", "2")

	require.NoError(t, err)

	var row map[string]any
	decode(t, output, &row)
	assert.Equal(t, "Coffee", row["name"])
	assert.InDelta(t, 250.0, row["price"], 0.0001)
}

func Test_Get_When_Row_Is_Missing(t *testing.T) {
	configPath := setupConfig(t)

	_, err := execute(t, "-c", configPath, "get", "products", "404")

	assert.ErrorIs(t, err, cli.ErrRowNotFound)
}

func Test_Delete_Reports_Whether_A_Row_Was_Removed(t *testing.T) {
	// setup
	configPath := setupConfig(t)

	// act
	first, errFirst := execute(t, "-c", configPath, "delete", "products", "3")
	second, errSecond := execute(t, "-c", configPath, "delete", "products", "3")

	// assert
	require.NoError(t, errFirst)
	require.NoError(t, errSecond)

	var firstResult, secondResult cli.DeleteResult
	decode(t, first, &firstResult)
	decode(t, second, &secondResult)

	assert.Equal(t, cli.DeleteResult{Table: "products", ID: "3", Deleted: true}, firstResult)
	assert.False(t, secondResult.Deleted)
}

func Test_Commands_When_Connection_Is_Unknown(t *testing.T) {
	configPath := setupConfig(t)

	_, err := execute(t, "-c", configPath, "--connection", "reporting", "get", "products", "1")

	assert.ErrorIs(t, err, cli.ErrUnknownConnection)
}

func Test_Commands_When_Config_Is_Missing(t *testing.T) {
	_, err := execute(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "find", "products")

	assert.ErrorIs(t, err, config.ErrReadingConfigFailed)
}

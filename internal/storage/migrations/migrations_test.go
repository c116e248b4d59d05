package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_LoadsTickersTable(t *testing.T) {
	migs, err := Postgres()
	require.NoError(t, err)
	require.NotEmpty(t, migs)

	assert.Equal(t, "001_tickers.sql", migs[0].Name)
	require.Len(t, migs[0].Statements, 2)
	assert.Contains(t, migs[0].Statements[0], "CREATE TABLE IF NOT EXISTS tickers")
	assert.Contains(t, migs[0].Statements[1], "idx_tickers_position")
}

func TestClickhouse_LoadsStagingTable(t *testing.T) {
	migs, err := Clickhouse()
	require.NoError(t, err)
	require.NotEmpty(t, migs)

	stmts := migs[0].Statements
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "ENGINE = MergeTree()")
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS tickers_staging AS tickers", stmts[1])
}

func TestSplitStatements(t *testing.T) {
	input := `
-- leading comment
CREATE TABLE a (x INT);

-- between
CREATE TABLE b (y INT)
;
`
	stmts := splitStatements(input)
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE TABLE b (y INT)"}, stmts)
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT 'it''s'; SELECT 1;`))
	assert.Error(t, validateNoSemicolonInStrings(`SELECT 'a;b';`))
}

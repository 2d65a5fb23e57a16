package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/migrations"
)

// expectDriverSetup covers what the postgres migration driver runs when it
// binds to a connection and finds its version table already present.
func expectDriverSetup(mock sqlmock.Sqlmock) {
	mock.ExpectPing()
	mock.ExpectQuery(`SELECT CURRENT_DATABASE\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"current_database"}).AddRow("policysearch"))
	mock.ExpectQuery(`SELECT CURRENT_SCHEMA\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"current_schema"}).AddRow("public"))
	mock.ExpectExec(`SELECT pg_advisory_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(1\) FROM information_schema.tables`).
		WithArgs("public", "schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`SELECT pg_advisory_unlock`).WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectSetVersion(mock sqlmock.Sqlmock, dirty bool) {
	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE "public"."schema_migrations"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "public"."schema_migrations" \(version, dirty\)`).
		WithArgs(1, dirty).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func TestMigrateUpToDateKeepsPoolOpen(t *testing.T) {
	c, mock := newMock(t)
	expectDriverSetup(mock)
	mock.ExpectExec(`SELECT pg_advisory_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version, dirty FROM "public"."schema_migrations" LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "dirty"}).AddRow(1, false))
	mock.ExpectExec(`SELECT pg_advisory_unlock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPing()

	require.NoError(t, c.Migrate(context.Background(), migrations.FS))
	require.NoError(t, c.Ping(context.Background()), "pool must survive Migrate")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateAppliesPendingThenServesQueries(t *testing.T) {
	c, mock := newMock(t)
	expectDriverSetup(mock)
	mock.ExpectExec(`SELECT pg_advisory_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version, dirty FROM "public"."schema_migrations" LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "dirty"}))
	expectSetVersion(mock, true)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS chats`).WillReturnResult(sqlmock.NewResult(0, 0))
	expectSetVersion(mock, false)
	mock.ExpectExec(`SELECT pg_advisory_unlock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version, dirty FROM "public"."schema_migrations" LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "dirty"}).AddRow(1, false))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM chats`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	require.NoError(t, c.Migrate(context.Background(), migrations.FS))

	var n int
	require.NoError(t, c.DB.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM chats").Scan(&n))
	require.NoError(t, mock.ExpectationsWereMet())
}

package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInsertRowsBatchesIntoOneStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := newPostgresStoreWithDB(db, zap.NewNop())
	capturedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []Row{
		{MarketID: "FED-25DEC", Venue: "kalshi", OutcomeIndex: 0, OutcomeName: "Yes", Price: 0.47, ImpliedProb: 0.47, CapturedAt: capturedAt},
		{MarketID: "FED-25DEC", Venue: "kalshi", OutcomeIndex: 1, OutcomeName: "No", Price: 0.55, ImpliedProb: 0.55, CapturedAt: capturedAt},
	}

	mock.ExpectExec("INSERT INTO odds_snapshots").
		WithArgs(
			"FED-25DEC", "kalshi", 0, "Yes", 0.47, 0.47, capturedAt,
			"FED-25DEC", "kalshi", 1, "No", 0.55, 0.55, capturedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, store.InsertRows(context.Background(), rows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRowsEmptyIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := newPostgresStoreWithDB(db, zap.NewNop())
	require.NoError(t, store.InsertRows(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := newPostgresStoreWithDB(db, zap.NewNop())
	cutoff := time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("DELETE FROM odds_snapshots WHERE captured_at").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 1234))

	n, err := store.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkStaleMarkets(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := newPostgresStoreWithDB(db, zap.NewNop())
	cutoff := time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE markets SET active = FALSE").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := store.MarkStaleMarkets(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

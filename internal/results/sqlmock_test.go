package results

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genome-trait-server/internal/domain"
)

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	return newSQLiteStoreWithDB(db, logger), mock
}

func TestUpdateStatus_IssuesSingleUpdate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE analyses").
		WithArgs("matching", "", sqlmock.AnyArg(), "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateStatus(context.Background(), "run-1", domain.StatusMatching, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveResult_RollsBackOnInsertFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE analyses").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectPrepare("INSERT INTO analysis_associations").
		ExpectExec().
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	result := &domain.AnalysisResult{
		Groups: []domain.CategoryGroup{
			{
				Category: "Alzheimer",
				Associations: []domain.ScoredAssociation{
					{VariantID: "rs429358", Genotype: "CT", Trait: "Alzheimer's disease"},
				},
			},
		},
	}

	err := store.SaveResult(context.Background(), "run-1", result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveResult_NotFoundStopsBeforeInserts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE analyses").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.SaveResult(context.Background(), "missing", &domain.AnalysisResult{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

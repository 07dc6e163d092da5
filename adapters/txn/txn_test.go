package txn

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bmizerany/assert"

	"github.com/chararch/migbatch"
)

func TestCommit(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.Equal(t, nil, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	tm := NewTransactionManager(db)
	tx, be := tm.BeginTx(context.Background())
	assert.Equal(t, nil, be)
	assert.Equal(t, nil, tm.Commit(tx))
	assert.Equal(t, nil, mock.ExpectationsWereMet())
}

func TestBeginFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.Equal(t, nil, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	tx, be := NewTransactionManager(db).BeginTx(context.Background())
	assert.T(t, tx == nil)
	assert.T(t, migbatch.IsBatchError(be, migbatch.ErrCodeDbFail))
}

func TestRollbackWithOptions(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.Equal(t, nil, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	tm := NewTransactionManagerWithOptions(db, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	tx, be := tm.BeginTx(context.Background())
	assert.Equal(t, nil, be)
	assert.Equal(t, nil, tm.Rollback(tx))
	assert.Equal(t, nil, mock.ExpectationsWereMet())
}

func TestCommitRejectsForeignTx(t *testing.T) {
	be := NewTransactionManager(nil).Commit("not a tx")
	assert.T(t, migbatch.IsBatchError(be, migbatch.ErrCodeDbFail))
	assert.Equal(t, "not a sql transaction:string", be.Message())
}

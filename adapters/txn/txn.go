package txn

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chararch/migbatch"
)

// SQLTxManager is the TransactionManager of the MySQL repository, its transactions are *sql.Tx
type SQLTxManager struct {
	db   *sql.DB
	opts *sql.TxOptions
}

// NewTransactionManager transactions use the default isolation level of the database
func NewTransactionManager(db *sql.DB) migbatch.TransactionManager {
	return &SQLTxManager{db: db}
}

// NewTransactionManagerWithOptions transactions are started with opts
func NewTransactionManagerWithOptions(db *sql.DB, opts *sql.TxOptions) migbatch.TransactionManager {
	return &SQLTxManager{db: db, opts: opts}
}

func (tm *SQLTxManager) BeginTx(ctx context.Context) (interface{}, migbatch.BatchError) {
	tx, err := tm.db.BeginTx(ctx, tm.opts)
	if err != nil {
		return nil, migbatch.NewBatchError(migbatch.ErrCodeDbFail, "begin transaction", err)
	}
	return tx, nil
}

func (tm *SQLTxManager) Commit(tx interface{}) migbatch.BatchError {
	sqlTx, be := asSQLTx(tx)
	if be != nil {
		return be
	}
	if err := sqlTx.Commit(); err != nil {
		return migbatch.NewBatchError(migbatch.ErrCodeDbFail, "commit transaction", err)
	}
	return nil
}

func (tm *SQLTxManager) Rollback(tx interface{}) migbatch.BatchError {
	sqlTx, be := asSQLTx(tx)
	if be != nil {
		return be
	}
	if err := sqlTx.Rollback(); err != nil && err != sql.ErrTxDone {
		return migbatch.NewBatchError(migbatch.ErrCodeDbFail, "rollback transaction", err)
	}
	return nil
}

func asSQLTx(tx interface{}) (*sql.Tx, migbatch.BatchError) {
	sqlTx, ok := tx.(*sql.Tx)
	if !ok || sqlTx == nil {
		return nil, migbatch.NewBatchError(migbatch.ErrCodeDbFail, fmt.Sprintf("not a sql transaction:%T", tx))
	}
	return sqlTx, nil
}

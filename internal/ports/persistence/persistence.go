package persistence

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Persistence набор операций над хранилищем, общий для соединения и транзакции
type Persistence interface {
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Query(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	Exec(ctx context.Context, query string, args ...interface{}) error
	ExecWithResult(ctx context.Context, query string, args ...interface{}) (int64, error)
	NamedExec(ctx context.Context, query string, arg interface{}) error
	NamedExecWithResult(ctx context.Context, query string, arg interface{}) (int64, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	NamedQuery(ctx context.Context, query string, arg interface{}) (*sqlx.Rows, error)
}

// Transaction транзакция, закрывается Commit или Rollback
type Transaction interface {
	Persistence
	Commit() error
	Rollback() error
}

// Database соединение, умеющее открывать транзакции
type Database interface {
	Persistence
	BeginTx(ctx context.Context) (Transaction, error)
	WithTransaction(ctx context.Context, fn func(context.Context, Transaction) error) error
	Close() error
}

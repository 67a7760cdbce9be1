// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/quill/internal/platform/ctxkey"
)

// TxMode selects how [Transactor.Run] treats a transaction already bound to the context.
type TxMode int

const (
	// TxJoin reuses the bound transaction, or begins one if none is bound.
	TxJoin TxMode = iota

	// TxNew always begins a fresh transaction. Its commit does not depend on
	// the outcome of any enclosing transaction.
	TxNew
)

// String implements [fmt.Stringer] for log output.
func (mode TxMode) String() string {
	switch mode {
	case TxJoin:
		return "join"
	case TxNew:
		return "new"
	default:
		return fmt.Sprintf("TxMode(%d)", int(mode))
	}
}

// DBTX is the query surface shared by [pgxpool.Pool] and [pgx.Tx].
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Beginner starts transactions. [pgxpool.Pool] satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Transactor runs units of work inside database transactions.
type Transactor struct {
	pool Beginner
}

// NewTransactor creates a [Transactor] over the given pool.
func NewTransactor(pool Beginner) *Transactor {
	return &Transactor{pool: pool}
}

/*
Run executes work inside a transaction selected by mode.

The transaction is committed when work returns nil and rolled back when it
returns an error or panics. A joined transaction is left for its owner to
finish.

Parameters:
  - ctx: context.Context
  - mode: TxMode (join the bound transaction or start a new one)
  - work: func(context.Context) error (receives a context carrying the transaction)

Returns:
  - error: The error from work, or a begin/commit failure
*/
func (transactor *Transactor) Run(ctx context.Context, mode TxMode, work func(ctx context.Context) error) (err error) {
	if mode == TxJoin {
		if _, ok := ctx.Value(ctxkey.KeyTx).(pgx.Tx); ok {
			return work(ctx)
		}
	}

	tx, err := transactor.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin %s transaction: %w", mode, err)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(recovered)
		}
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = work(context.WithValue(ctx, ctxkey.KeyTx, tx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit %s transaction: %w", mode, err)
	}

	return nil
}

// Conn returns the transaction bound to ctx, or fallback when there is none.
//
// Repositories call it on every statement so a single implementation serves
// both transactional and autocommit callers.
func Conn(ctx context.Context, fallback DBTX) DBTX {
	if tx, ok := ctx.Value(ctxkey.KeyTx).(pgx.Tx); ok {
		return tx
	}
	return fallback
}

package ledger

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// Row is one transaction as mirrored to the external ledger.
type Row struct {
	TxID     int64
	Date     time.Time
	Type     core.TransactionType
	Category string
	Amount   core.Money
	Note     string
}

// Ports for outbound adapters.
type (
	// Appender writes one transaction row and returns a backend reference
	// (a sheet range, a synthetic key, etc.).
	Appender interface {
		Append(ctx context.Context, row Row) (rowRef string, err error)
	}

	// Remover deletes the row previously written for the given transaction.
	Remover interface {
		Remove(ctx context.Context, txID int64) error
	}
)

// Ledger is the full outbound surface the export worker needs.
type Ledger interface {
	Appender
	Remover
}

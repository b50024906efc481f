package events

import (
	"encoding/json"
	"time"
)

// TransactionExportMessage asks the worker to mirror one transaction to the
// external ledger. It carries only the ID and version; the worker fetches the
// full record from storage so the ledger always sees the committed state.
type TransactionExportMessage struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionExportMessage creates a new export message with just ID and version
func NewTransactionExportMessage(id, version int64) *TransactionExportMessage {
	return &TransactionExportMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionExportMessageFromJSON creates a message from JSON bytes
func TransactionExportMessageFromJSON(data []byte) (*TransactionExportMessage, error) {
	var msg TransactionExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// TransactionDeleteMessage asks the worker to remove a transaction's row from
// the external ledger after a local delete.
type TransactionDeleteMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionDeleteMessage creates a new delete message
func NewTransactionDeleteMessage(id int64) *TransactionDeleteMessage {
	return &TransactionDeleteMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionDeleteMessageFromJSON creates a message from JSON bytes
func TransactionDeleteMessageFromJSON(data []byte) (*TransactionDeleteMessage, error) {
	var msg TransactionDeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// envelope tags every published body so one queue can carry both kinds.
type envelope struct {
	Kind string          `json:"kind"`
	Body json.RawMessage `json:"body"`
}

const (
	kindExport = "transaction.export"
	kindDelete = "transaction.delete"
)

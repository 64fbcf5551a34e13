package amqp

import (
	"encoding/json"
	"time"
)

const (
	EventTransactionChanged = "transaction.changed"
	EventTransactionDeleted = "transaction.deleted"
)

// TransactionEventMessage is the lightweight change-feed event for a
// transaction. It carries only the ID and version; consumers fetch the
// full row from the database.
type TransactionEventMessage struct {
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionChangedMessage creates a change event for a created or
// updated transaction.
func NewTransactionChangedMessage(id, version int64) *TransactionEventMessage {
	return &TransactionEventMessage{
		Type:      EventTransactionChanged,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// NewTransactionDeletedMessage creates a change event for a deleted
// transaction.
func NewTransactionDeletedMessage(id int64) *TransactionEventMessage {
	return &TransactionEventMessage{
		Type:      EventTransactionDeleted,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventMessageFromJSON creates a message from JSON bytes
func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ProfileReconcileMessage asks the reconcile worker to re-upsert a
// profile whose invite succeeded but whose role sync failed.
type ProfileReconcileMessage struct {
	UserID    string    `json:"user_id"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// NewProfileReconcileMessage creates a reconcile request for a principal.
func NewProfileReconcileMessage(userID, fullName, role string) *ProfileReconcileMessage {
	return &ProfileReconcileMessage{
		UserID:    userID,
		FullName:  fullName,
		Role:      role,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ProfileReconcileMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ProfileReconcileMessageFromJSON creates a message from JSON bytes
func ProfileReconcileMessageFromJSON(data []byte) (*ProfileReconcileMessage, error) {
	var msg ProfileReconcileMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"expensedesk/internal/core"
)

// StatusChangedMessage announces that an expense reached a terminal status.
// It carries enough of the record for consumers to act without a lookup.
type StatusChangedMessage struct {
	ExpenseID   int64     `json:"expense_id"`
	Status      string    `json:"status"`
	Title       string    `json:"title"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category"`
	Owner       string    `json:"owner"`
	Date        string    `json:"date"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewStatusChangedMessage creates a message for e stamped with the current time.
func NewStatusChangedMessage(e core.Expense) *StatusChangedMessage {
	return &StatusChangedMessage{
		ExpenseID:   e.ID,
		Status:      e.Status.String(),
		Title:       e.Title,
		AmountCents: e.Amount.Cents,
		Category:    e.CategoryName,
		Owner:       e.OwnerName,
		Date:        e.Date.ISO(),
		Timestamp:   time.Now().UTC(),
	}
}

// Validate rejects messages no consumer can act on.
func (m *StatusChangedMessage) Validate() error {
	if m.ExpenseID <= 0 {
		return errors.New("expense_id must be positive")
	}
	if !core.Status(m.Status).Valid() {
		return core.ErrInvalidStatus
	}
	return nil
}

// Approved reports whether the message announces an approval.
func (m *StatusChangedMessage) Approved() bool {
	return core.Status(m.Status) == core.StatusApproved
}

// LedgerEntry converts the message into a ledger row.
func (m *StatusChangedMessage) LedgerEntry() core.LedgerEntry {
	entry := core.LedgerEntry{
		ExpenseID:  m.ExpenseID,
		Title:      m.Title,
		Owner:      m.Owner,
		Category:   m.Category,
		Amount:     core.Money{Cents: m.AmountCents},
		ApprovedAt: m.Timestamp.UTC().Format(time.RFC3339),
	}
	if d, err := core.ParseDate(m.Date); err == nil {
		entry.Date = d
	}
	return entry
}

// ToJSON converts the message to JSON bytes
func (m *StatusChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// StatusChangedMessageFromJSON parses and validates a message.
func StatusChangedMessageFromJSON(data []byte) (*StatusChangedMessage, error) {
	var msg StatusChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

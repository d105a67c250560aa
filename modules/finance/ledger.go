// Package finance is the built-in finance module: a ledger of income and
// expense transactions in minor currency units.
package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/artpar/carehub/core/hooks"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

var (
	// ErrInvalidTransaction is returned for transactions that fail validation.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrNotFound is returned when a transaction does not exist.
	ErrNotFound = errors.New("transaction not found")
)

// Kind separates money in from money out.
type Kind string

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// Transaction is one ledger entry. Amount is always positive; Kind carries the sign.
type Transaction struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	Category    string `json:"category"`
	Amount      int64  `json:"amount"`
	Date        string `json:"date"` // YYYY-MM-DD
	Description string `json:"description,omitempty"`
}

// Signed returns the amount with expenses negative.
func (t Transaction) Signed() int64 {
	if t.Kind == Expense {
		return -t.Amount
	}
	return t.Amount
}

// CategoryTotal is the sum of one category's transactions.
type CategoryTotal struct {
	Kind     Kind   `json:"kind"`
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
	Count    int    `json:"count"`
}

// Notifier fires a hook for a ledger change.
type Notifier func(ctx context.Context, hook string, e hooks.Event)

// Ledger is the live instance of the finance module.
type Ledger struct {
	mu           sync.RWMutex
	transactions map[string]Transaction
	categories   map[Kind]map[string]bool
	notify       Notifier
}

// NewLedger creates an empty ledger accepting the given categories per kind.
func NewLedger(categories map[Kind][]string) *Ledger {
	l := &Ledger{
		transactions: make(map[string]Transaction),
		categories:   make(map[Kind]map[string]bool, len(categories)),
	}
	for kind, names := range categories {
		set := make(map[string]bool, len(names))
		for _, n := range names {
			set[n] = true
		}
		l.categories[kind] = set
	}
	return l
}

// SetNotifier sets the function used to announce changes. nil disables it.
func (l *Ledger) SetNotifier(n Notifier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notify = n
}

// Record adds a transaction.
func (l *Ledger) Record(ctx context.Context, kind Kind, category string, amount int64, date, description string) (Transaction, error) {
	t := Transaction{
		ID:          uuid.NewString(),
		Kind:        kind,
		Category:    strings.TrimSpace(category),
		Amount:      amount,
		Date:        date,
		Description: description,
	}

	l.mu.Lock()
	if err := l.validateLocked(t); err != nil {
		l.mu.Unlock()
		return Transaction{}, err
	}
	l.transactions[t.ID] = t
	notify := l.notify
	l.mu.Unlock()

	if notify != nil {
		notify(ctx, hooks.AfterSave, hooks.Event{Module: ModuleID, RecordID: t.ID, Record: t})
	}
	return t, nil
}

func (l *Ledger) validateLocked(t Transaction) error {
	if t.Kind != Income && t.Kind != Expense {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTransaction, t.Kind)
	}
	if t.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTransaction)
	}
	if _, err := time.Parse(dateLayout, t.Date); err != nil {
		return fmt.Errorf("%w: date %q: %v", ErrInvalidTransaction, t.Date, err)
	}
	if allowed, ok := l.categories[t.Kind]; ok && !allowed[t.Category] {
		return fmt.Errorf("%w: unknown %s category %q", ErrInvalidTransaction, t.Kind, t.Category)
	}
	return nil
}

// Delete removes a transaction.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	t, ok := l.transactions[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(l.transactions, id)
	notify := l.notify
	l.mu.Unlock()

	if notify != nil {
		notify(ctx, hooks.AfterDelete, hooks.Event{Module: ModuleID, RecordID: id, Record: t})
	}
	return nil
}

// Between returns transactions dated from..to inclusive, in date order.
// Empty bounds are open.
func (l *Ledger) Between(from, to string) []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Transaction, 0)
	for _, t := range l.transactions {
		if from != "" && t.Date < from {
			continue
		}
		if to != "" && t.Date > to {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Balance returns income minus expenses.
func (l *Ledger) Balance() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total int64
	for _, t := range l.transactions {
		total += t.Signed()
	}
	return total
}

// Totals returns per-category sums, sorted by kind then category.
func (l *Ledger) Totals() []CategoryTotal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	type key struct {
		kind     Kind
		category string
	}
	sums := make(map[key]*CategoryTotal)
	for _, t := range l.transactions {
		k := key{t.Kind, t.Category}
		ct, ok := sums[k]
		if !ok {
			ct = &CategoryTotal{Kind: t.Kind, Category: t.Category}
			sums[k] = ct
		}
		ct.Amount += t.Amount
		ct.Count++
	}

	out := make([]CategoryTotal, 0, len(sums))
	for _, ct := range sums {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Category < out[j].Category
	})
	return out
}

type snapshot struct {
	Transactions []Transaction `json:"transactions"`
}

// Snapshot implements registry.Snapshotter.
func (l *Ledger) Snapshot() (json.RawMessage, error) {
	return json.Marshal(snapshot{Transactions: l.Between("", "")})
}

// Restore implements registry.Restorer. Every transaction is validated
// against the current categories.
func (l *Ledger) Restore(data json.RawMessage) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode finance snapshot: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	transactions := make(map[string]Transaction, len(s.Transactions))
	for _, t := range s.Transactions {
		if t.ID == "" {
			return fmt.Errorf("%w: snapshot entry without id", ErrInvalidTransaction)
		}
		if err := l.validateLocked(t); err != nil {
			return fmt.Errorf("%s: %w", t.ID, err)
		}
		transactions[t.ID] = t
	}
	l.transactions = transactions
	return nil
}

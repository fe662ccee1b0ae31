package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
)

// Contention on the single config document is rare, so a handful of
// optimistic retries is enough.
const (
	txAttempts = 5
	txCeiling  = 15 * time.Second
)

// TxFunc is the body of a read-merge-write transaction. It may run more than
// once and must not have side effects outside tx.
type TxFunc func(ctx context.Context, tx *firestore.Transaction) error

// RunTransaction runs fn on the provider's client. A caller deadline shorter
// than the ceiling is kept.
func (p *Provider) RunTransaction(ctx context.Context, fn TxFunc) error {
	if fn == nil {
		return WrapError("transaction", errors.New("transaction body is nil"))
	}
	client, err := p.Client(ctx)
	if err != nil {
		return WrapError("transaction", err)
	}

	ctx, cancel := withCeiling(ctx, txCeiling)
	defer cancel()
	return WrapError("transaction", client.RunTransaction(ctx, fn, firestore.MaxAttempts(txAttempts)))
}

func withCeiling(ctx context.Context, limit time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= limit {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, limit)
}

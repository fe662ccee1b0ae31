package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Record is a decoded document and its id.
type Record[T any] struct {
	ID   string
	Data T
}

// Collection is a typed view over one Firestore collection. T is the
// document struct with firestore tags.
type Collection[T any] struct {
	provider *Provider
	name     string
}

func NewCollection[T any](provider *Provider, name string) *Collection[T] {
	return &Collection[T]{provider: provider, name: strings.TrimSpace(name)}
}

func (c *Collection[T]) Name() string { return c.name }

// Put overwrites the document id with value.
func (c *Collection[T]) Put(ctx context.Context, id string, value T) error {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return err
	}
	_, err = ref.Set(ctx, value)
	return WrapError(c.name+".put", err)
}

func (c *Collection[T]) Get(ctx context.Context, id string) (Record[T], error) {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return Record[T]{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return Record[T]{}, WrapError(c.name+".get", err)
	}
	return c.Decode(snap)
}

// Remove deletes the document. A missing document is not an error.
func (c *Collection[T]) Remove(ctx context.Context, id string) error {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return err
	}
	_, err = ref.Delete(ctx)
	return WrapError(c.name+".remove", err)
}

// List runs the query shaped by narrow, which may be nil for the whole
// collection.
func (c *Collection[T]) List(ctx context.Context, narrow func(firestore.Query) firestore.Query) ([]Record[T], error) {
	client, err := c.client(ctx)
	if err != nil {
		return nil, err
	}
	q := client.Collection(c.name).Query
	if narrow != nil {
		q = narrow(q)
	}
	it := q.Documents(ctx)
	defer it.Stop()

	var out []Record[T]
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, WrapError(c.name+".list", err)
		}
		rec, err := c.Decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

// Ref returns the document reference, for use inside transactions.
func (c *Collection[T]) Ref(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%s: document id is required", c.name)
	}
	client, err := c.client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(c.name).Doc(id), nil
}

func (c *Collection[T]) Decode(snap *firestore.DocumentSnapshot) (Record[T], error) {
	var data T
	if err := snap.DataTo(&data); err != nil {
		return Record[T]{}, fmt.Errorf("%s: decode %s: %w", c.name, snap.Ref.ID, err)
	}
	return Record[T]{ID: snap.Ref.ID, Data: data}, nil
}

func (c *Collection[T]) client(ctx context.Context) (*firestore.Client, error) {
	if c == nil || c.provider == nil || c.name == "" {
		return nil, errors.New("firestore: collection is not configured")
	}
	client, err := c.provider.Client(ctx)
	if err != nil {
		// A client that cannot be built is as good as an unreachable backend.
		return nil, &Error{Op: c.name + ".client", Kind: KindUnavailable, err: err}
	}
	return client, nil
}

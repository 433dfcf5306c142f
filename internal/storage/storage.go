// Package storage provides the durable key/value backends that mirror a
// client's session: a bearer token and a JSON session payload.
package storage

import (
	"context"
	"errors"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("storage closed")

// Storage is a string key/value store. SetMany must write all values or none.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// Namespaced scopes every key of base under prefix.
type Namespaced struct {
	base   Storage
	prefix string
}

var _ Storage = (*Namespaced)(nil)

// Namespace returns a view of base whose keys are prefixed with "<ns>:".
func Namespace(base Storage, ns string) *Namespaced {
	return &Namespaced{base: base, prefix: ns + ":"}
}

// Get reads a namespaced key.
func (n *Namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.base.Get(ctx, n.prefix+key)
}

// SetMany writes namespaced keys atomically.
func (n *Namespaced) SetMany(ctx context.Context, values map[string]string) error {
	scoped := make(map[string]string, len(values))
	for k, v := range values {
		scoped[n.prefix+k] = v
	}
	return n.base.SetMany(ctx, scoped)
}

// Delete removes namespaced keys.
func (n *Namespaced) Delete(ctx context.Context, keys ...string) error {
	scoped := make([]string, len(keys))
	for i, k := range keys {
		scoped[i] = n.prefix + k
	}
	return n.base.Delete(ctx, scoped...)
}

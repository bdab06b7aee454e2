// Package store is the document store collaborator: owner-scoped schemaless
// documents grouped in collections, with live query subscriptions.
package store

import (
	"context"
	"errors"
	"time"
)

// Document is a schemaless key/value map as stored.
type Document map[string]any

// Snapshot is one stored document with its metadata.
type Snapshot struct {
	ID        string
	Owner     string
	Data      Document
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Query selects the documents of one collection that belong to one owner.
type Query struct {
	Collection string
	Owner      string
}

// ChangeFunc receives the full matching set, in creation order, after every change.
type ChangeFunc func(docs []Snapshot)

// CancelFunc tears a subscription down. It is idempotent and returns only once
// no further ChangeFunc call can happen. It must not be called from inside the ChangeFunc.
type CancelFunc func()

// Store is implemented by Memory and Postgres.
type Store interface {
	Create(ctx context.Context, collection, owner string, data Document) (string, error)
	CreateWithID(ctx context.Context, collection, id, owner string, data Document) error
	Get(ctx context.Context, collection, id, owner string) (Snapshot, error)
	Update(ctx context.Context, collection, id, owner string, data Document) error
	Delete(ctx context.Context, collection, id, owner string) error
	Subscribe(ctx context.Context, q Query, onChange ChangeFunc) (CancelFunc, error)
	ActiveSubscriptions() int
}

// Error kinds. Match with errors.Is.
var (
	ErrNotFound         = errors.New("document not found")
	ErrAlreadyExists    = errors.New("document already exists")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnavailable      = errors.New("store unavailable")
)

// Error is a store failure with a message fit to show to the user verbatim.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func errNotFound() error {
	return &Error{Kind: ErrNotFound, Message: "No document to update or delete was found."}
}

func errAlreadyExists() error {
	return &Error{Kind: ErrAlreadyExists, Message: "Document already exists."}
}

func errPermissionDenied() error {
	return &Error{Kind: ErrPermissionDenied, Message: "Missing or insufficient permissions."}
}

func errUnauthenticated() error {
	return &Error{Kind: ErrUnauthenticated, Message: "You must be signed in to do that."}
}

func errInvalid(msg string) error {
	return &Error{Kind: ErrInvalidArgument, Message: msg}
}

func errUnavailable(err error) error {
	return &Error{Kind: ErrUnavailable, Message: "The service is currently unavailable. Please try again.", Err: err}
}

func checkArgs(collection, owner string) error {
	if owner == "" {
		return errUnauthenticated()
	}
	if collection == "" {
		return errInvalid("Collection name is required.")
	}
	return nil
}

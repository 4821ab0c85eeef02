// Package store provides serialized, crash-atomic access to the single
// persisted portfolio document.
//
// All read-modify-write sequences flow through one goroutine that owns the
// document. Transactions commit in submission order; a transaction always
// observes the fully-committed result of every transaction submitted before
// it. Writes go to a temp file in the document's directory followed by an
// atomic rename, so readers never observe a partial document.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// Tx is a transaction over the aggregate. It receives the current state,
// may mutate it in place, and returns a caller-defined result. Returning an
// error aborts the transaction: nothing is written.
//
// A Tx must not call back into the store; it runs on the store's writer
// goroutine and a nested submit would deadlock.
type Tx func(state *domain.PortfolioData) (interface{}, error)

type opKind int

const (
	opView opKind = iota
	opUpdate
)

type request struct {
	kind  opKind
	tx    Tx
	reply chan response
}

type response struct {
	value interface{}
	err   error
}

// Store serializes all access to the portfolio document.
type Store struct {
	path     string
	requests chan request
	done     chan struct{}
	onCommit func()
	observe  func(d time.Duration, err error)
	log      zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCommitHook registers a callback invoked after every successful write.
// The hook runs on the writer goroutine and must return quickly; it must
// not call back into the store.
func WithCommitHook(fn func()) Option {
	return func(s *Store) { s.onCommit = fn }
}

// WithObserver registers a callback that receives the duration and outcome
// of every transaction. Same writer-goroutine rules as WithCommitHook.
func WithObserver(fn func(d time.Duration, err error)) Option {
	return func(s *Store) { s.observe = fn }
}

// Open creates the store for the document at path and starts its writer
// goroutine. The parent directory is created if needed.
func Open(path string, log zerolog.Logger, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Store{
		path:     path,
		requests: make(chan request, 64),
		done:     make(chan struct{}),
		log:      log.With().Str("component", "store").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.run()
	return s, nil
}

// Path returns the document path.
func (s *Store) Path() string { return s.path }

// Close stops the writer goroutine after draining already-queued
// transactions. Pending transactions always run to completion; there is no
// way to dequeue one.
func (s *Store) Close() {
	close(s.requests)
	<-s.done
}

// Update submits a transaction and blocks until it has committed (or
// aborted). FIFO order with respect to all other submissions.
func (s *Store) Update(tx Tx) (interface{}, error) {
	reply := make(chan response, 1)
	s.requests <- request{kind: opUpdate, tx: tx, reply: reply}
	resp := <-reply
	return resp.value, resp.err
}

// View submits a read-only transaction. It flows through the same queue as
// updates, so it observes every previously submitted transaction's effect.
// Mutations made by a View tx are discarded.
func (s *Store) View(tx Tx) (interface{}, error) {
	reply := make(chan response, 1)
	s.requests <- request{kind: opView, tx: tx, reply: reply}
	resp := <-reply
	return resp.value, resp.err
}

// Snapshot returns a copy of the current aggregate.
func (s *Store) Snapshot() domain.PortfolioData {
	v, _ := s.View(func(state *domain.PortfolioData) (interface{}, error) {
		return *state, nil
	})
	snap, ok := v.(domain.PortfolioData)
	if !ok {
		return domain.EmptyPortfolio()
	}
	return snap
}

func (s *Store) run() {
	defer close(s.done)
	for req := range s.requests {
		start := time.Now()
		state := readDocument(s.path)
		value, err := req.tx(&state)
		if err == nil && req.kind == opUpdate {
			if werr := s.write(state); werr != nil {
				err = fmt.Errorf("failed to persist document: %w", werr)
			} else if s.onCommit != nil {
				s.onCommit()
			}
		}
		if s.observe != nil {
			s.observe(time.Since(start), err)
		}
		req.reply <- response{value: value, err: err}
	}
}

// write serializes the aggregate to a temp file in the document's directory
// and renames it over the real path. Rename within a directory is atomic on
// POSIX filesystems.
func (s *Store) write(state domain.PortfolioData) error {
	data, err := encodeDocument(state)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".db-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}

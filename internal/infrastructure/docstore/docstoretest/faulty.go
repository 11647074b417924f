// Package docstoretest provides store wrappers for exercising failure paths.
package docstoretest

import (
	"context"
	"sync"

	"github.com/pocketbook/backend/internal/domain/store"
)

// Faulty wraps a DocumentStore and fails chosen writes
type Faulty struct {
	store.DocumentStore

	mu    sync.Mutex
	rules []rule
	calls []Call
}

// Call records one write that reached the wrapper
type Call struct {
	Op   string
	Path string
}

type rule struct {
	op   string
	path string
	err  error
}

// Wrap returns a Faulty around s
func Wrap(s store.DocumentStore) *Faulty {
	return &Faulty{DocumentStore: s}
}

// FailOn makes every op ("set", "update", "delete" or "" for any) on path fail with err
func (f *Faulty) FailOn(op, path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{op: op, path: path, err: err})
}

// Calls returns the writes seen so far
func (f *Faulty) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CountOp returns how many writes of op were seen
func (f *Faulty) CountOp(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (f *Faulty) check(op string, ref store.DocumentRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: op, Path: ref.Path()})
	for _, r := range f.rules {
		if (r.op == "" || r.op == op) && r.path == ref.Path() {
			return r.err
		}
	}
	return nil
}

// Set fails if a rule matches, otherwise delegates
func (f *Faulty) Set(ctx context.Context, ref store.DocumentRef, fields store.Fields) error {
	if err := f.check("set", ref); err != nil {
		return err
	}
	return f.DocumentStore.Set(ctx, ref, fields)
}

// Update fails if a rule matches, otherwise delegates
func (f *Faulty) Update(ctx context.Context, ref store.DocumentRef, fields store.Fields) error {
	if err := f.check("update", ref); err != nil {
		return err
	}
	return f.DocumentStore.Update(ctx, ref, fields)
}

// Delete fails if a rule matches, otherwise delegates
func (f *Faulty) Delete(ctx context.Context, ref store.DocumentRef) error {
	if err := f.check("delete", ref); err != nil {
		return err
	}
	return f.DocumentStore.Delete(ctx, ref)
}

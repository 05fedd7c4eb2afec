// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package host

import (
	"sync"
	"sync/atomic"

	"github.com/gomlx/exceptions"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Call is the scope of one native call into the numeric engine.
//
// Arrays converted to views during the call are borrowed by it: they can't be freed until the call exits.
// Views keep a reference to their Call and check it's still alive before handing out data.
type Call struct {
	id    uuid.UUID
	name  string
	rt    *Runtime
	alive atomic.Bool

	mu    sync.Mutex
	slots []borrowSlot
	roots []*Array
}

// Enter starts a call scope. It must be closed with Call.Exit, usually in a defer.
func (rt *Runtime) Enter(name string) *Call {
	c := &Call{
		id:   uuid.New(),
		name: name,
		rt:   rt,
	}
	c.alive.Store(true)
	klog.V(1).Infof("host: enter call %q (%s)", name, c.id)
	return c
}

// Call runs fn within a new call scope, and exits the scope when fn returns, even if it panics.
func (rt *Runtime) Call(name string, fn func(c *Call) error) error {
	c := rt.Enter(name)
	defer c.Exit()
	return fn(c)
}

// ID returns the unique identifier of the call.
func (c *Call) ID() uuid.UUID { return c.id }

// Name of the call, given at Enter.
func (c *Call) Name() string { return c.name }

// Runtime returns the runtime where the call is executing.
func (c *Call) Runtime() *Runtime { return c.rt }

// Alive returns whether the call is still in progress.
func (c *Call) Alive() bool { return c.alive.Load() }

// CheckAlive panics if the call has already exited. Views call it before handing out data.
func (c *Call) CheckAlive() {
	if !c.Alive() {
		exceptions.Panicf("view used after call %q (%s) exited: views must not outlive the call that created them",
			c.name, c.id)
	}
}

// Borrow records that the given arrays (or the arrays they are views of) are in use by the call until it exits.
// Borrowing the same array more than once is fine.
//
// It's all or nothing: if any of the arrays can't be borrowed, none of them is.
func (c *Call) Borrow(arrs ...*Array) error {
	if !c.Alive() {
		return errors.Errorf("Call.Borrow: call %q already exited", c.name)
	}
	roots := make([]*Array, len(arrs))
	for ii, arr := range arrs {
		if arr == nil {
			return errors.Errorf("Call.Borrow: array #%d is nil", ii)
		}
		roots[ii] = arr.root()
	}

	c.rt.mu.Lock()
	defer c.rt.mu.Unlock()
	for ii, root := range roots {
		if root.freed.Load() {
			return errors.Errorf("Call.Borrow: array %s was freed", arrs[ii].id)
		}
	}
	slots := make([]borrowSlot, len(roots))
	for ii, root := range roots {
		root.borrowCount.Add(1)
		slots[ii] = c.rt.borrows.acquire(Borrow{CallID: c.id, CallName: c.name, ArrayID: root.id})
	}

	c.mu.Lock()
	c.slots = append(c.slots, slots...)
	c.roots = append(c.roots, roots...)
	c.mu.Unlock()
	return nil
}

// Exit closes the call scope and releases its borrows. Calling it more than once is a no-op.
func (c *Call) Exit() {
	if !c.alive.CompareAndSwap(true, false) {
		return
	}
	c.mu.Lock()
	slots, roots := c.slots, c.roots
	c.slots, c.roots = nil, nil
	c.mu.Unlock()

	c.rt.mu.Lock()
	for ii, slot := range slots {
		c.rt.borrows.release(slot)
		roots[ii].borrowCount.Add(-1)
	}
	c.rt.mu.Unlock()
	klog.V(1).Infof("host: exit call %q (%s), released %d borrow(s)", c.name, c.id, len(slots))
}

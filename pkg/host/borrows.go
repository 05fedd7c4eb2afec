// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package host

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// borrowSlot indexes borrowRegistry.slots.
type borrowSlot int

const (
	initialBorrowSlots = 32
	endOfList          = borrowSlot(-1)
)

// Borrow describes an array borrowed by a Call in progress.
type Borrow struct {
	CallID   uuid.UUID
	CallName string
	ArrayID  uuid.UUID
}

// borrowRegistry keeps the borrows of all calls in progress of a Runtime.
//
// slots not holding a Borrow store the borrowSlot of the next free slot, forming a linked list
// starting at nextFree. It's not safe for concurrent use: the Runtime protects it with its mutex.
type borrowRegistry struct {
	slots    []any
	nextFree borrowSlot
}

func (r *borrowRegistry) init() {
	r.slots = make([]any, initialBorrowSlots)
	for ii := 0; ii < len(r.slots)-1; ii++ {
		r.slots[ii] = borrowSlot(ii + 1)
	}
	r.slots[len(r.slots)-1] = endOfList
	r.nextFree = 0
}

func (r *borrowRegistry) acquire(b Borrow) borrowSlot {
	if r.slots == nil {
		r.init()
	}
	if r.nextFree == endOfList {
		r.slots = append(r.slots, b)
		return borrowSlot(len(r.slots) - 1)
	}
	acquired := r.nextFree
	r.nextFree = r.slots[acquired].(borrowSlot)
	r.slots[acquired] = b
	return acquired
}

func (r *borrowRegistry) release(slot borrowSlot) {
	r.slots[slot] = r.nextFree
	r.nextFree = slot
}

// list returns the current borrows, sorted by call name and array ID.
func (r *borrowRegistry) list() []Borrow {
	var borrows []Borrow
	for _, slot := range r.slots {
		if b, ok := slot.(Borrow); ok {
			borrows = append(borrows, b)
		}
	}
	slices.SortFunc(borrows, func(a, b Borrow) int {
		if c := strings.Compare(a.CallName, b.CallName); c != 0 {
			return c
		}
		return strings.Compare(a.ArrayID.String(), b.ArrayID.String())
	})
	return borrows
}

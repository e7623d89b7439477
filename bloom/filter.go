// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package bloom defines the narrow consumption-side interface peer/pool
// need to honor a BIP37 filterload/filteradd/filterclear session. Filter
// construction, tuning (false-positive rate, hash function count), and
// the murmur3-based matching algorithm itself are out of scope here: this
// package only names the shape a concrete filter implementation must have
// to be wired into a peer's relay path.
package bloom

// Filter is satisfied by anything that can answer "would BIP37 filterload
// matching consider this data element a hit." It has no transaction-level
// match-and-update method; a caller that wants new outpoints inserted as
// they are observed does so through Add.
type Filter interface {
	// Matches reports whether data is present in the filter.
	Matches(data []byte) bool

	// Add inserts data into the filter (filteradd / auto-update).
	Add(data []byte)

	// IsLoaded reports whether a filter has been loaded for this peer at
	// all; an unloaded filter matches nothing and relays everything.
	IsLoaded() bool
}

// nullFilter is the zero-value Filter: matches nothing, used for peers
// that never sent filterload.
type nullFilter struct{}

func (nullFilter) Matches(data []byte) bool { return false }
func (nullFilter) Add(data []byte)          {}
func (nullFilter) IsLoaded() bool           { return false }

// NullFilter returns the always-empty Filter used before a peer loads one.
func NullFilter() Filter { return nullFilter{} }

package raftlog

// Deleter receives one notification per entry dropped by Delete, in
// ascending logical-index order, before the entries are actually removed
// from disk and cache.
type Deleter interface {
	OnDeleted(e *Entry, index uint64)
}

// DeleterFunc adapts a plain function to the Deleter interface.
type DeleterFunc func(e *Entry, index uint64)

// OnDeleted implements Deleter.
func (f DeleterFunc) OnDeleted(e *Entry, index uint64) { f(e, index) }

// Loader receives one callback per entry enumerated by LoadEntries, in
// ascending logical-index order. A non-zero return aborts the remainder of
// the scan.
type Loader interface {
	OnLoaded(e *Entry, index uint64) int
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(e *Entry, index uint64) int

// OnLoaded implements Loader.
func (f LoaderFunc) OnLoaded(e *Entry, index uint64) int { return f(e, index) }

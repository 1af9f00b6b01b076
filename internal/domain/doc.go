// Package domain defines the core domain types and interfaces.
//
// This package contains the signal and record types, sentinel errors, and the
// HistoryStore contract shared by the storage variants. No implementation
// code - just contracts. Keeping interfaces here prevents circular imports
// between the memory manager and the storage adapters.
package domain

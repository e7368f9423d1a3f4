// Package domain contains the core business entities for Seedsync.
// Domain types are pure values with no dependencies on adapters,
// persistence or transport.
package domain

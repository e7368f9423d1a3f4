// Package memory provides in-memory implementations of the storage
// ports. Used in tests and as a throwaway store for ephemeral
// sessions; the sqlite package is the durable counterpart.
package memory

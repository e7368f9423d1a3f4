// Package driven defines the outbound ports of the Seedsync core:
// the store, feed and index interfaces that adapters implement.
package driven

// Package couch implements the remote store port against a
// CouchDB-compatible HTTP server.
//
// Listing goes through the seeds/visible design view, the change feed
// through _changes with the same server-side filter, and uploads
// through _bulk_docs with new_edits=false so locally allocated
// revisions are preserved end to end. All requests share a token-bucket
// throttle to keep a bulk backfill from flooding the server.
package couch

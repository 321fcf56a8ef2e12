// Package protocol defines the JSON text frames exchanged with clients and
// the codec that parses inbound requests. Validation is strict about frame
// shape (a missing or non-array feed list is a hard error) but lenient about
// individual entries (a malformed feedId is skipped, never fatal).
package protocol

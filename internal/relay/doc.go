// Package relay is the core of the server: a subscription registry that
// tracks which connections want which feeds, and a broadcast dispatcher that
// fans published feed values out to exactly the subscribed connections.
//
// The registry owns all per-connection state for the lifetime of a session.
// The transport layer holds only the integer connection ID and must call
// Unregister on close or error; a failed delivery during a broadcast is
// treated the same way and prunes the connection. Neither type ever performs
// network I/O while holding a lock.
package relay

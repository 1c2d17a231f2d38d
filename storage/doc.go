// Package storage provides the durable key-value capability the session store persists
// into.
//
// # Architecture boundaries
//
// This package owns the [Storage] contract and its adapters ([Memory], [File], [Redis]).
// It stores opaque byte values under string keys and knows nothing about sessions,
// credentials or their encoding.
//
// # What this package must NOT do
//
//   - Import goAuthClient, session, or refresh (no upward imports).
//   - Interpret or log stored values; they carry bearer credentials.
//   - Expire keys on its own; lifetime is decided by the session store.
package storage

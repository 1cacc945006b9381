// Package ir provides the canonical value types shared by every layer of
// unistore.
//
// Actions and state snapshots cross three boundaries: the SQLite journal,
// YAML scenarios, and CLI JSON. To make replay byte-for-byte reproducible they
// are expressed in a small sealed value set and serialized with RFC 8785
// canonical JSON.
//
// Key design constraints:
//   - NO floats anywhere; numbers are int64
//   - Object keys are ordered by UTF-16 code units when serialized
//   - Strings are NFC normalized at the serialization boundary
//   - Identity (action ids, state hashes) is SHA-256 over canonical bytes
//     with a versioned domain prefix
//
// ir imports nothing internal.
package ir

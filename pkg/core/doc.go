// Package core defines the shared language of the LeapDB system.
//
// This package contains:
//   - Column types (FieldType, Field, FieldInfo, Schema)
//   - Foreign-key requests and relation records
//   - The tagged Error type used across the storage packages
//   - History entry types and the HistoryStore interface
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core

// Package core defines the shared language of playlake.
//
// This package contains:
//   - Raw input records (Record, RecordSet) and their typed accessors
//   - Dimensional entities (Song, Artist, User, TimeRow, SongPlay)
//   - Typed output tables (Table, Column) with partition metadata
//   - Service interfaces (Adapter, Store) and run bookkeeping types
//   - The error taxonomy shared by readers, transforms and writers
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core

// Package journalstore is a demo implementation of the journal file
// store the compaction core consumes only through
// compaction.JournalFileStore: length-prefixed, CRC32-checked records in
// files with the "cdb" extension, plus an xxhash-backed positional index
// used by the unrelated hashtable_calc request.
package journalstore

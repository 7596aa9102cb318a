// Package inbox turns text files dropped into a directory into
// transcripts.
//
// Every non-blank line of a file is one transcript. Filesystem events are
// batched in short windows so that a file still being written is read
// once, after it settles. Ingested files are removed.
package inbox

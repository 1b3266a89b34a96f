// Package source provides a positional reader over a delimited text file.
//
// The reader turns logical lines into pgload.Record values and keeps a line
// cursor that can be moved to an absolute record offset. Repositioning always
// re-derives the cursor from the start of the file, so seeking to the same
// offset twice leaves the reader in the same state.
//
// Offsets count data records only. When the file has a header line, offset 0
// is the first line after the header.
package source

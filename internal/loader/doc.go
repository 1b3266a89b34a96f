// Package loader runs a load: it wires the positional reader, the batch
// planner and the insertion executor together and drives the batch loop.
//
// A run has three phases.
//
// Startup opens the source, asks whether the first line is a header, counts
// the records, connects to the destination, optionally creates the table and
// reads how many rows the table already holds.
//
// The resume decision follows from that row count. An empty table starts at
// batch 0. Otherwise the prompter chooses to continue (the reader is moved to
// the first record of the batch the existing rows end in) or to restart (the
// table is truncated). Any other answer stops the run before anything is
// written.
//
// The batch loop reads one window of records per batch and hands it to the
// executor, which commits it in a single transaction or gives up after its
// retry budget. After a failure the reader is moved back to the failed
// window's first record; the failure policy then either ends the run or
// submits the window again.
//
// Shutdown always runs: the reader and the destination are closed whether
// the run completed, failed or was interrupted.
package loader

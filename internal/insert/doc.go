// Package insert writes batches of records into the destination table.
//
// Each batch is written inside exactly one transaction per attempt, so a
// batch is either fully visible in the destination or not at all. Transient
// failures roll the transaction back and re-attempt the same batch a bounded
// number of times; anything else fails the batch immediately.
package insert

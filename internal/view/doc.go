// Package view derives the consumer-facing page from a reconciled state.
//
// The pipeline has three pure stages applied in order: Filter, Sort and
// Paginate. Compute runs all three; Cache memoizes the filtered and sorted
// list so that page changes only re-slice it.
package view

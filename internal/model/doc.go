// Package model defines shared data types used across the arbitrage feed.
//
// Conventions:
//   - Prices and percentages: float64 as delivered by the upstream scanner
//   - Timestamps: int64 milliseconds since Unix epoch
//   - Optional payload fields are pointers; nil means null or absent on the wire
//   - IDs: opaque strings assigned upstream, stable across snapshots
package model

// Package models defines the core domain models for pantry.
//
// # Current Models
//
//   - ProductGroup: one tracked product, keyed by barcode
//   - ExpiryBatch: the units of a product that share one expiry date
//   - Date: a calendar day without time of day
//   - LegacyRecord: the flat, one-row-per-batch format written by early
//     versions of the tracker
//   - SyncPayload: the record pushed to the remote store under a sync code
//   - Reference: one row of the auxiliary barcode lookup table
//
// # Design Principles
//
//  1. **Barcode is the key**: a product is identified by its barcode, not its name.
//     Two products may share a name.
//  2. **Batches by date**: quantities are only ever grouped by expiry day.
//  3. **Plain values**: models carry no behavior beyond formatting and
//     comparison, so snapshots can be copied and handed to readers freely.
//  4. **Stable JSON**: field names match the persisted `products` array so
//     existing exports stay importable.
package models

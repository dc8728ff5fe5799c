// Package projection derives the list shown to the user from a catalog
// snapshot: search filtering, the expired-only filter, sorting, and
// per-batch expiry status.
package projection

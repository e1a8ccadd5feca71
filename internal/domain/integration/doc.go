// Package integration contains the catalog synchronization bounded context.
// It pushes products from a source storefront catalog into the authentication
// service as orders and records a durable per-item outcome.
//
// Key concepts:
//   - ProductRecord: read-only snapshot of a catalog product for one batch
//   - Taxonomy: category/brand/image-slot and service reference data, loaded per invocation
//   - SyncOutcome: the single durable row per source item describing the last attempt
//   - ItemRun: per-item state machine (FETCHED -> ... -> SUCCESS | FAILED | SKIPPED)
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (Shopify, Real Authentication, gorm, redis) are in the infrastructure layer
package integration

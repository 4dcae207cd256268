// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: AggregateModel with the version column
//   - inventory.go: lots
//   - fulfillment.go: stock export orders and goods issue notes
//   - finance.go: invoices, payment records and customer debts
//
// Nested value collections (order lines, invoice details, payment allocations)
// are stored as JSON columns on their aggregate's row.
package models

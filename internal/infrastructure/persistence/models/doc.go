// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Layouts and payment histories are stored as JSON documents on their owning
// row (properties.floors, tenants.payments) so each aggregate is written by a
// single versioned UPDATE.
//
// Structure:
//   - base.go: shared identity and version columns
//   - property.go: properties table
//   - tenant.go: tenants table
//   - transaction.go: transactions table (reporting log)
package models

// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free from
// ORM concerns.
//
// Structure:
//   - base.go: BaseModel and AggregateModel
//   - catalog.go: products
//   - sales.go: orders and order_items
//   - identity.go: users
//   - audit.go: audit_records
package models

// Package models contains the GORM persistence models. They carry the table
// mappings so the domain stays free of ORM tags; the snapshot store converts
// between them and raw session values.
package models

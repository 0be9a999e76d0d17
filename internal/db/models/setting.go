// Package models contains database model definitions.
package models

// Setting represents a named configuration blob stored in the database.
// The bot keeps runtime-mutable state here (leveling rules, the last sync
// timestamp) so it travels with cross-host snapshots.
type Setting struct {
	ID    uint64 `gorm:"primaryKey"`
	Name  string `gorm:"unique"`
	Value []byte `gorm:"type:blob"`
}

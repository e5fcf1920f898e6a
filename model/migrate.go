package model

import "gorm.io/gorm"

// allModels lists every model to be auto-migrated.
var allModels = []interface{}{
	&Adventurer{},
	&Quest{},
	&Comment{},
	&QuestTemplate{},
	&Resource{},
	&AuditLog{},
}

// AutoMigrate creates or updates all tables in the given database. It is
// idempotent and safe to run on every start.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(allModels...)
}

package Models

import (
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the configured database and runs migrations. It is called
// once from main; failures are fatal because nothing works without a store.
func Connect(driver, dsn string) {
	db, err := Open(driver, dsn)
	if err != nil {
		log.Fatalf("Failed to connect to %s database: %v", driver, err)
	}
	if err := Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	DB = db
}

// Open dials the database for the given driver. sqlite is the default and
// what the tests run against.
func Open(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case "sqlite", "":
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	case "mysql":
		return gorm.Open(mysql.Open(dsn), &gorm.Config{})
	case "postgres":
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Migrate creates the schema. Users first, then the entities that reference
// them, then notifications which reference everything.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&DeviceToken{},
		&Project{},
		&Task{},
		&Notification{},
	)
}

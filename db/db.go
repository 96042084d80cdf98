package db

import (
	"errors"
	"fmt"
	"log"

	"github.com/KAsare1/socialfeed-server/cmd/models"
	"github.com/KAsare1/socialfeed-server/config"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Tables in dependency order.
func Tables() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Profile{},
		&models.Post{},
		&models.PostImage{},
		&models.PostLike{},
		&models.PostComment{},
		&models.PostShare{},
		&models.UserFollow{},
	}
}

// NewPSQLStorage opens a gorm connection through the lib/pq driver.
func NewPSQLStorage(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DB_URL is not set")
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DriverName: "postgres",
		DSN:        cfg.DatabaseURL,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)

	return db, nil
}

func Migrate(db *gorm.DB) error {
	log.Println("Starting database migrations...")
	for _, model := range Tables() {
		name := fmt.Sprintf("%T", model)
		log.Printf("Migrating %s...", name)
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("error migrating %s: %w", name, err)
		}
	}
	log.Println("Migrations completed successfully")
	return nil
}

// DropTables drops the given tables, or every table when none are given.
func DropTables(db *gorm.DB, tables []interface{}) error {
	if len(tables) == 0 {
		all := Tables()
		for i := len(all) - 1; i >= 0; i-- {
			tables = append(tables, all[i])
		}
	}

	var errs []error
	for _, table := range tables {
		if err := db.Migrator().DropTable(table); err != nil {
			log.Printf("Warning dropping table %T: %v", table, err)
			errs = append(errs, err)
			continue
		}
		log.Printf("Table %T dropped", table)
	}
	return errors.Join(errs...)
}

// TableByName maps a model name such as "PostLike" to its model.
func TableByName(name string) (interface{}, bool) {
	for _, model := range Tables() {
		if fmt.Sprintf("%T", model) == "*models."+name {
			return model, true
		}
	}
	return nil, false
}

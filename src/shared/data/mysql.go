package data

import (
	"log"

	"github.com/sendcrew/reqbot/src/shared/types"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func MustMySQL(dsn string) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	return db
}

// Migrate creates or updates every table the bot owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Setting{},
		&types.Route{},
		&types.ParameterValue{},
		&types.PermissionFlag{},
		&types.Request{},
		&types.RequestOpinion{},
		&types.RequestReview{},
		&types.Cooldown{},
		&types.LoggedEvent{},
	)
}

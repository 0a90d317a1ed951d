package config

import (
	"fmt"
	"strings"

	model "vibtrix/repository"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var enumQueries = []string{
	`CREATE TYPE vibtrix.qualification_status AS ENUM ('UNEVALUATED', 'QUALIFIED', 'ELIMINATED')`,
	`CREATE TYPE vibtrix.payment_status AS ENUM ('CREATED', 'COMPLETED', 'FAILED')`,
	`CREATE TYPE vibtrix.gender AS ENUM ('MALE', 'FEMALE', 'OTHER')`,
}

func InitDB(host string, port string, user string, password string, dbName string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbName)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   "vibtrix.",
			SingularTable: false,
		},
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	x := db.Exec(`CREATE SCHEMA IF NOT EXISTS vibtrix`)
	if x.Error != nil {
		return nil, x.Error
	}
	for _, query := range enumQueries {
		x := db.Exec(query)
		if x.Error != nil {
			if strings.Contains(x.Error.Error(), "already exists") {
				continue
			}
			return nil, x.Error
		}
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Competition{},
		&model.Round{},
		&model.Participant{},
		&model.RoundEntry{},
		&model.Post{},
		&model.Like{},
		&model.Payment{},
		&model.SiteSettings{},
		&model.RecurringJob{},
	)

	if err != nil {
		return nil, err
	}
	return db, nil
}

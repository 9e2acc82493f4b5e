package dao

import "gorm.io/gorm"

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Brand{},
		&Location{},
		&PassTemplate{},
		&Diner{},
		&IssuedPass{},
		&Subscription{},
	)
}

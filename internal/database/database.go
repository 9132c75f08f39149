package database

import (
	"errors"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pluvial233/WHU-teamwork/internal/models"
)

// Open connects to PostgreSQL and applies the connection-pool settings.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate creates or updates the three tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Book{}, &models.BorrowRecord{})
}

// Seed inserts the default accounts and the starter catalog when absent, so a
// fresh database is immediately usable.
func Seed(db *gorm.DB) error {
	defaults := []models.User{
		{Username: "admin", Password: "admin", Role: models.UserRoleAdmin},
		{Username: "user", Password: "user", Role: models.UserRoleUser},
	}
	for _, u := range defaults {
		var existing models.User
		err := db.First(&existing, "username = ?", u.Username).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		user := u
		if err := db.Create(&user).Error; err != nil {
			return err
		}
		log.Printf("[INFO] Seed: created default user %q (role=%s)", user.Username, user.Role)
	}

	var bookCount int64
	if err := db.Model(&models.Book{}).Count(&bookCount).Error; err != nil {
		return err
	}
	if bookCount > 0 {
		return nil
	}

	books := []models.Book{
		{Title: "Python编程：从入门到实践", Author: "埃里克·马瑟斯", Category: "编程", ISBN: "9787115428028", Stock: 5},
		{Title: "算法导论", Author: "托马斯·H·科曼", Category: "计算机科学", ISBN: "9787111407010", Stock: 3},
		{Title: "红楼梦", Author: "曹雪芹", Category: "文学", ISBN: "9787020002207", Stock: 4},
		{Title: "三体", Author: "刘慈欣", Category: "科幻", ISBN: "9787536692930", Stock: 6},
		{Title: "人类简史", Author: "尤瓦尔·赫拉利", Category: "历史", ISBN: "9787508647357", Stock: 2},
	}
	if err := db.Create(&books).Error; err != nil {
		return err
	}
	log.Printf("[INFO] Seed: created %d starter books", len(books))
	return nil
}

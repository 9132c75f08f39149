package repositories

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pluvial233/WHU-teamwork/internal/models"
)

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	GetByID(db *gorm.DB, id uint) (*models.User, error)
	GetByUsername(db *gorm.DB, username string) (*models.User, error)
	Count(db *gorm.DB) (int64, error)
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	List(db *gorm.DB) ([]models.Book, error)
	GetByID(db *gorm.DB, id uint) (*models.Book, error)
	GetByIDForUpdate(db *gorm.DB, id uint) (*models.Book, error)
	Search(db *gorm.DB, keyword string) ([]models.Book, error)
	AdjustStock(db *gorm.DB, bookID uint, delta int) error
}

type BorrowRecordRepository interface {
	Create(db *gorm.DB, record *models.BorrowRecord) error
	GetByIDForUpdate(db *gorm.DB, id uint) (*models.BorrowRecord, error)
	MarkReturned(db *gorm.DB, recordID uint, returnedAt time.Time) error
	ListByUser(db *gorm.DB, userID uint) ([]models.BorrowRecord, error)
	ListAll(db *gorm.DB) ([]models.BorrowRecord, error)
	Count(db *gorm.DB) (int64, error)
}

// concrete implementations

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	return db.Create(user).Error
}

func (r *userRepository) GetByID(db *gorm.DB, id uint) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(db *gorm.DB, username string) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Count(db *gorm.DB) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	if err := db.Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Create(book).Error
}

func (r *bookRepository) List(db *gorm.DB) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) GetByID(db *gorm.DB, id uint) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) GetByIDForUpdate(db *gorm.DB, id uint) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Search matches the keyword as a literal substring of title or author.
func (r *bookRepository) Search(db *gorm.DB, keyword string) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	pattern := "%" + keyword + "%"
	var books []models.Book
	if err := db.Where("title LIKE ? OR author LIKE ?", pattern, pattern).
		Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) AdjustStock(db *gorm.DB, bookID uint, delta int) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Book{}).
		Where("id = ?", bookID).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta)).
		Error
}

type borrowRecordRepository struct {
	db *gorm.DB
}

func NewBorrowRecordRepository(db *gorm.DB) BorrowRecordRepository {
	return &borrowRecordRepository{db: db}
}

func (r *borrowRecordRepository) Create(db *gorm.DB, record *models.BorrowRecord) error {
	if db == nil {
		db = r.db
	}
	return db.Create(record).Error
}

func (r *borrowRecordRepository) GetByIDForUpdate(db *gorm.DB, id uint) (*models.BorrowRecord, error) {
	if db == nil {
		db = r.db
	}
	var record models.BorrowRecord
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&record, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *borrowRecordRepository) MarkReturned(db *gorm.DB, recordID uint, returnedAt time.Time) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.BorrowRecord{}).
		Where("id = ? AND return_date IS NULL", recordID).
		Update("return_date", returnedAt).
		Error
}

func (r *borrowRecordRepository) ListByUser(db *gorm.DB, userID uint) ([]models.BorrowRecord, error) {
	if db == nil {
		db = r.db
	}
	var records []models.BorrowRecord
	if err := db.Preload("Book").
		Where("user_id = ?", userID).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *borrowRecordRepository) ListAll(db *gorm.DB) ([]models.BorrowRecord, error) {
	if db == nil {
		db = r.db
	}
	var records []models.BorrowRecord
	if err := db.Preload("User").Preload("Book").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *borrowRecordRepository) Count(db *gorm.DB) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	if err := db.Model(&models.BorrowRecord{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

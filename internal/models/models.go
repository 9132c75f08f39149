package models

import "time"

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

type User struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	Username string   `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"size:20;not null;default:user" json:"role"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

type Book struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Title    string `gorm:"size:200;not null" json:"title"`
	Author   string `gorm:"size:100;not null" json:"author"`
	Category string `gorm:"size:50" json:"category"`
	ISBN     string `gorm:"size:20;uniqueIndex" json:"isbn"`
	Stock    int    `gorm:"not null;default:1" json:"stock"`
}

type BorrowRecord struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	User       User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	BookID     uint       `gorm:"not null;index" json:"book_id"`
	Book       Book       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	BorrowDate time.Time  `gorm:"not null" json:"borrow_date"`
	DueDate    time.Time  `gorm:"not null" json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
	Fine       float64    `gorm:"not null;default:0" json:"fine"`
}

// Returned reports whether the record has left the outstanding state.
func (r *BorrowRecord) Returned() bool {
	return r.ReturnDate != nil
}

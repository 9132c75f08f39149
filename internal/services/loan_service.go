package services

import (
	"database/sql"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/pluvial233/WHU-teamwork/internal/models"
	"github.com/pluvial233/WHU-teamwork/internal/repositories"
)

// LoanPeriodDays is the number of days a user may keep a book.
const LoanPeriodDays = 14

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrBookNotFound is returned when the requested book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrRecordNotFound is returned when the referenced borrow record does not exist.
	ErrRecordNotFound = errors.New("borrow record not found")

	// ErrNoStock is returned when a borrow is attempted against a depleted book.
	// No record is created and no stock is changed.
	ErrNoStock = errors.New("no copies in stock")

	// ErrNotOwner is returned when a return is attempted on another user's record.
	ErrNotOwner = errors.New("borrow record belongs to another user")

	// ErrAlreadyReturned is returned when a return is attempted on a record whose
	// return date is already set. Without this guard a repeat return would credit
	// the book's stock a second time.
	ErrAlreadyReturned = errors.New("borrow record already returned")
)

// TxRunner is the transaction entry point the services need from *gorm.DB.
// Tests substitute a pass-through runner so the loan flows can be exercised
// against in-memory repositories.
type TxRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// ─── Service Interface ────────────────────────────────────────────────────────

// LoanService enforces the borrow/return invariants over catalog stock and
// borrow records.
type LoanService interface {
	Search(keyword string) ([]models.Book, error)
	Borrow(userID, bookID uint) (*models.BorrowRecord, error)
	Return(userID, recordID uint) error
	ListRecords(user *models.User) ([]models.BorrowRecord, error)
}

type loanService struct {
	db         TxRunner
	bookRepo   repositories.BookRepository
	recordRepo repositories.BorrowRecordRepository
}

func NewLoanService(db TxRunner, bookRepo repositories.BookRepository, recordRepo repositories.BorrowRecordRepository) LoanService {
	return &loanService{
		db:         db,
		bookRepo:   bookRepo,
		recordRepo: recordRepo,
	}
}

// ─── Search ───────────────────────────────────────────────────────────────────

// Search returns every book whose title or author contains the keyword as a
// literal substring. An empty result is not an error, and an empty keyword is
// passed through (it matches everything).
func (s *loanService) Search(keyword string) ([]models.Book, error) {
	return s.bookRepo.Search(nil, keyword)
}

// ─── Borrow ───────────────────────────────────────────────────────────────────

// Borrow implements the transactional borrow flow.
//
// The book row is locked (SELECT ... FOR UPDATE) so the stock check and the
// decrement are atomic: two concurrent borrows of the last copy cannot both
// succeed. On success one BorrowRecord is created with a 14-day due window and
// the stock is decremented by exactly 1; on any rejection nothing changes.
func (s *loanService) Borrow(userID, bookID uint) (*models.BorrowRecord, error) {
	var record *models.BorrowRecord

	err := s.db.Transaction(func(tx *gorm.DB) error {
		book, err := s.bookRepo.GetByIDForUpdate(tx, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		if book.Stock <= 0 {
			log.Printf("[WARN] Borrow: book %d out of stock, rejecting user %d", bookID, userID)
			return ErrNoStock
		}

		now := time.Now().UTC()
		rec := &models.BorrowRecord{
			UserID:     userID,
			BookID:     bookID,
			BorrowDate: now,
			DueDate:    now.AddDate(0, 0, LoanPeriodDays),
			Fine:       0,
		}
		if err := s.recordRepo.Create(tx, rec); err != nil {
			log.Printf("[ERROR] Borrow: failed to create record for user %d / book %d: %v", userID, bookID, err)
			return err
		}
		if err := s.bookRepo.AdjustStock(tx, bookID, -1); err != nil {
			log.Printf("[ERROR] Borrow: failed to decrement stock for book %d: %v", bookID, err)
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] Borrow: record %d created for user %d / book %d, due %s",
		record.ID, userID, bookID, record.DueDate.Format("2006-01-02"))
	return record, nil
}

// ─── Return ───────────────────────────────────────────────────────────────────

// Return implements the transactional return flow.
//
// Steps (all in one transaction):
//  1. Lock the record row (FOR UPDATE).
//  2. Reject if the record belongs to another user.
//  3. Reject if the record was already returned.
//  4. Set the return date and increment the book's stock by 1.
func (s *loanService) Return(userID, recordID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		record, err := s.recordRepo.GetByIDForUpdate(tx, recordID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}

		if record.UserID != userID {
			log.Printf("[WARN] Return: record %d belongs to user %d, rejecting user %d", recordID, record.UserID, userID)
			return ErrNotOwner
		}

		if record.Returned() {
			log.Printf("[WARN] Return: record %d already returned at %s", recordID, record.ReturnDate)
			return ErrAlreadyReturned
		}

		now := time.Now().UTC()
		if err := s.recordRepo.MarkReturned(tx, record.ID, now); err != nil {
			log.Printf("[ERROR] Return: failed to mark record %d returned: %v", recordID, err)
			return err
		}
		if err := s.bookRepo.AdjustStock(tx, record.BookID, 1); err != nil {
			log.Printf("[ERROR] Return: failed to restore stock for book %d: %v", record.BookID, err)
			return err
		}

		log.Printf("[INFO] Return: record %d returned by user %d, stock restored for book %d", recordID, userID, record.BookID)
		return nil
	})
	return err
}

// ─── Queries ──────────────────────────────────────────────────────────────────

// ListRecords returns all borrow records visible to the user: admins see every
// record, regular users only their own. Pure query, branched on the role tag.
func (s *loanService) ListRecords(user *models.User) ([]models.BorrowRecord, error) {
	if user.IsAdmin() {
		return s.recordRepo.ListAll(nil)
	}
	return s.recordRepo.ListByUser(nil, user.ID)
}

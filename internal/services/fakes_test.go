package services_test

import (
	"database/sql"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pluvial233/WHU-teamwork/internal/models"
)

// passTx satisfies services.TxRunner by running the callback directly. The
// in-memory repositories below ignore the tx argument, mirroring the nil
// fallback of the gorm implementations.
type passTx struct{}

func (passTx) Transaction(fc func(tx *gorm.DB) error, _ ...*sql.TxOptions) error {
	return fc(nil)
}

type memUserRepo struct {
	nextID uint
	users  map[uint]*models.User
}

func newMemUserRepo(users ...models.User) *memUserRepo {
	r := &memUserRepo{users: map[uint]*models.User{}}
	for _, u := range users {
		u := u
		if u.ID == 0 {
			r.nextID++
			u.ID = r.nextID
		} else if u.ID > r.nextID {
			r.nextID = u.ID
		}
		r.users[u.ID] = &u
	}
	return r
}

func (r *memUserRepo) Create(_ *gorm.DB, user *models.User) error {
	r.nextID++
	user.ID = r.nextID
	u := *user
	r.users[u.ID] = &u
	return nil
}

func (r *memUserRepo) GetByID(_ *gorm.DB, id uint) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *u
	return &c, nil
}

func (r *memUserRepo) GetByUsername(_ *gorm.DB, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) Count(_ *gorm.DB) (int64, error) {
	return int64(len(r.users)), nil
}

type memBookRepo struct {
	nextID uint
	books  map[uint]*models.Book
}

func newMemBookRepo(books ...models.Book) *memBookRepo {
	r := &memBookRepo{books: map[uint]*models.Book{}}
	for _, b := range books {
		b := b
		if b.ID == 0 {
			r.nextID++
			b.ID = r.nextID
		} else if b.ID > r.nextID {
			r.nextID = b.ID
		}
		r.books[b.ID] = &b
	}
	return r
}

func (r *memBookRepo) Create(_ *gorm.DB, book *models.Book) error {
	r.nextID++
	book.ID = r.nextID
	b := *book
	r.books[b.ID] = &b
	return nil
}

func (r *memBookRepo) List(_ *gorm.DB) ([]models.Book, error) {
	out := make([]models.Book, 0, len(r.books))
	for _, b := range r.books {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memBookRepo) GetByID(_ *gorm.DB, id uint) (*models.Book, error) {
	b, ok := r.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *b
	return &c, nil
}

func (r *memBookRepo) GetByIDForUpdate(db *gorm.DB, id uint) (*models.Book, error) {
	return r.GetByID(db, id)
}

func (r *memBookRepo) Search(_ *gorm.DB, keyword string) ([]models.Book, error) {
	var out []models.Book
	for _, b := range r.books {
		if strings.Contains(b.Title, keyword) || strings.Contains(b.Author, keyword) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memBookRepo) AdjustStock(_ *gorm.DB, bookID uint, delta int) error {
	b, ok := r.books[bookID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.Stock += delta
	return nil
}

func (r *memBookRepo) stock(id uint) int {
	return r.books[id].Stock
}

type memRecordRepo struct {
	nextID  uint
	records map[uint]*models.BorrowRecord
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{records: map[uint]*models.BorrowRecord{}}
}

func (r *memRecordRepo) Create(_ *gorm.DB, record *models.BorrowRecord) error {
	r.nextID++
	record.ID = r.nextID
	c := *record
	r.records[c.ID] = &c
	return nil
}

func (r *memRecordRepo) GetByIDForUpdate(_ *gorm.DB, id uint) (*models.BorrowRecord, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *rec
	return &c, nil
}

func (r *memRecordRepo) MarkReturned(_ *gorm.DB, recordID uint, returnedAt time.Time) error {
	rec, ok := r.records[recordID]
	if !ok || rec.ReturnDate != nil {
		return nil
	}
	t := returnedAt
	rec.ReturnDate = &t
	return nil
}

func (r *memRecordRepo) ListByUser(_ *gorm.DB, userID uint) ([]models.BorrowRecord, error) {
	var out []models.BorrowRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRecordRepo) ListAll(_ *gorm.DB) ([]models.BorrowRecord, error) {
	out := make([]models.BorrowRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRecordRepo) Count(_ *gorm.DB) (int64, error) {
	return int64(len(r.records)), nil
}

func (r *memRecordRepo) outstanding() int {
	n := 0
	for _, rec := range r.records {
		if rec.ReturnDate == nil {
			n++
		}
	}
	return n
}

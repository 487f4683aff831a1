package response

import (
	"time"

	"library-lending-api/internal/domain/lending"
)

type BorrowedBookResponse struct {
	ID           string    `json:"id"`
	BookCopyID   string    `json:"bookCopyId"`
	BookID       string    `json:"bookId"`
	UserID       string    `json:"userId"`
	BorrowedFrom time.Time `json:"borrowedFrom"`
	BorrowedTo   time.Time `json:"borrowedTo"`
}

func FromBorrowedBook(b *lending.BorrowedBook) BorrowedBookResponse {
	return BorrowedBookResponse{
		ID:           b.ID,
		BookCopyID:   b.BookCopyID,
		BookID:       b.BookID,
		UserID:       b.UserID,
		BorrowedFrom: b.BorrowedFrom,
		BorrowedTo:   b.BorrowedTo,
	}
}

type NotificationCountResponse struct {
	Count int `json:"count"`
}

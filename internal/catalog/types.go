package catalog

import "context"

// Book is a single catalog entry.
type Book struct {
	ID      int64
	Title   string
	Content string
	Count   int
}

// User is an account created from a provider profile on first login.
type User struct {
	// ID is the identifier issued by the identity provider.
	ID         string
	Name       string
	Email      string
	ProfilePic string
}

// BookStore persists books. Every method runs a single statement.
type BookStore interface {
	ListBooks(ctx context.Context) ([]*Book, error)
	// GetBook returns nil, nil when no book has the given id.
	GetBook(ctx context.Context, id int64) (*Book, error)
	// GetBookByTitle returns nil, nil when no book has exactly this title.
	GetBookByTitle(ctx context.Context, title string) (*Book, error)
	InsertBook(ctx context.Context, title, content string, count int) (int64, error)
	UpdateBook(ctx context.Context, id int64, title, summary string, count int) error
	DeleteBook(ctx context.Context, id int64) error
}

// UserStore persists users.
type UserStore interface {
	// GetUser returns nil, nil when the user does not exist.
	GetUser(ctx context.Context, id string) (*User, error)
	CreateUser(ctx context.Context, id, name, email, picture string) error
}

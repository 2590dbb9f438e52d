package catalog

import (
	"context"
	"fmt"
	"strconv"
)

// BookForm carries the raw values submitted by the create and edit forms.
// It is kept as strings so a rejected form can be rendered back unchanged.
type BookForm struct {
	Title   string
	Content string
	Count   string
}

// Validate checks the form in the order the fields are shown and returns the
// first failure. Titles are compared exactly, so nothing is trimmed.
func (f BookForm) Validate() (Book, error) {
	if f.Title == "" {
		return Book{}, &ValidationError{Field: "title", Message: MsgTitleRequired}
	}
	if f.Count == "" {
		return Book{}, &ValidationError{Field: "count", Message: MsgCountInvalid}
	}
	count, err := strconv.Atoi(f.Count)
	if err != nil || count < 0 {
		return Book{}, &ValidationError{Field: "count", Message: MsgCountInvalid, Err: err}
	}
	if f.Content == "" {
		return Book{}, &ValidationError{Field: "content", Message: MsgContentRequired}
	}
	return Book{Title: f.Title, Content: f.Content, Count: count}, nil
}

// FormFromBook returns a form pre-filled with b's values.
func FormFromBook(b *Book) BookForm {
	return BookForm{Title: b.Title, Content: b.Content, Count: strconv.Itoa(b.Count)}
}

// Service applies the catalog rules on top of a BookStore.
//
// The title uniqueness check is a read followed by a write with no
// transaction around them; two concurrent creates with the same title can
// both succeed.
type Service struct {
	books BookStore
}

// NewService creates a Service backed by books.
func NewService(books BookStore) *Service {
	return &Service{books: books}
}

// List returns every book.
func (s *Service) List(ctx context.Context) ([]*Book, error) {
	books, err := s.books.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// Get returns the book with the given id or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*Book, error) {
	b, err := s.books.GetBook(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}
	if b == nil {
		return nil, ErrNotFound
	}
	return b, nil
}

// Create validates the form and inserts a new book. Nothing is written when
// validation fails or the title is already in use.
func (s *Service) Create(ctx context.Context, form BookForm) (*Book, error) {
	b, err := form.Validate()
	if err != nil {
		return nil, err
	}
	if err := s.checkTitle(ctx, b.Title, 0); err != nil {
		return nil, err
	}
	id, err := s.books.InsertBook(ctx, b.Title, b.Content, b.Count)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	b.ID = id
	return &b, nil
}

// Update applies the same rules as Create to an existing book. A title only
// conflicts when another book already uses it.
func (s *Service) Update(ctx context.Context, id int64, form BookForm) (*Book, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	b, err := form.Validate()
	if err != nil {
		return nil, err
	}
	if err := s.checkTitle(ctx, b.Title, id); err != nil {
		return nil, err
	}
	if err := s.books.UpdateBook(ctx, id, b.Title, b.Content, b.Count); err != nil {
		return nil, fmt.Errorf("update book %d: %w", id, err)
	}
	b.ID = id
	return &b, nil
}

// Delete removes the book with the given id and returns it.
func (s *Service) Delete(ctx context.Context, id int64) (*Book, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.books.DeleteBook(ctx, id); err != nil {
		return nil, fmt.Errorf("delete book %d: %w", id, err)
	}
	return b, nil
}

// checkTitle fails with ErrDuplicateTitle when a book other than self
// already has title. self is 0 for new books.
func (s *Service) checkTitle(ctx context.Context, title string, self int64) error {
	existing, err := s.books.GetBookByTitle(ctx, title)
	if err != nil {
		return fmt.Errorf("lookup title: %w", err)
	}
	if existing != nil && existing.ID != self {
		return &ValidationError{Field: "title", Message: MsgTitleExists, Err: ErrDuplicateTitle}
	}
	return nil
}

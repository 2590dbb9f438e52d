// Package memory is an in-process implementation of the catalog stores.
// Contents are lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/teemow/bookshelf/internal/catalog"
)

var (
	_ catalog.BookStore = (*Store)(nil)
	_ catalog.UserStore = (*Store)(nil)
)

// Store keeps books and users in maps guarded by a single mutex. Records are
// copied on the way in and out so callers never share memory with the store.
type Store struct {
	mu     sync.Mutex
	nextID int64
	books  map[int64]*catalog.Book
	users  map[string]*catalog.User
}

// New creates an empty Store. Book ids start at 1.
func New() *Store {
	return &Store{
		nextID: 1,
		books:  make(map[int64]*catalog.Book),
		users:  make(map[string]*catalog.User),
	}
}

func (s *Store) ListBooks(_ context.Context) ([]*catalog.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	books := lo.MapToSlice(s.books, func(_ int64, b *catalog.Book) *catalog.Book {
		return copyBook(b)
	})
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

func (s *Store) GetBook(_ context.Context, id int64) (*catalog.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return nil, nil
	}
	return copyBook(b), nil
}

func (s *Store) GetBookByTitle(_ context.Context, title string) (*catalog.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := lo.Filter(lo.Values(s.books), func(b *catalog.Book, _ int) bool {
		return b.Title == title
	})
	if len(matches) == 0 {
		return nil, nil
	}
	first := lo.MinBy(matches, func(a, b *catalog.Book) bool { return a.ID < b.ID })
	return copyBook(first), nil
}

func (s *Store) InsertBook(_ context.Context, title, content string, count int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.books[id] = &catalog.Book{ID: id, Title: title, Content: content, Count: count}
	s.nextID++
	return id, nil
}

func (s *Store) UpdateBook(_ context.Context, id int64, title, summary string, count int) error {
	if id == 0 {
		return fmt.Errorf("memory: book with unassigned ID passed into UpdateBook")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return nil
	}
	s.books[id] = &catalog.Book{ID: id, Title: title, Content: summary, Count: count}
	return nil
}

func (s *Store) DeleteBook(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.books, id)
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*catalog.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// CreateUser inserts a user. Like the SQL schema, ids and emails are unique.
func (s *Store) CreateUser(_ context.Context, id, name, email, picture string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; ok {
		return fmt.Errorf("memory: user %q already exists", id)
	}
	if _, taken := lo.Find(lo.Values(s.users), func(u *catalog.User) bool { return u.Email == email }); taken {
		return fmt.Errorf("memory: email already registered")
	}
	s.users[id] = &catalog.User{ID: id, Name: name, Email: email, ProfilePic: picture}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Close drops all records.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = make(map[int64]*catalog.Book)
	s.users = make(map[string]*catalog.User)
	return nil
}

func copyBook(b *catalog.Book) *catalog.Book {
	cp := *b
	return &cp
}

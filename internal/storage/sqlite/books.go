package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/teemow/bookshelf/internal/catalog"
	"github.com/teemow/bookshelf/internal/instrumentation"
)

var bookColumns = []string{"id", "title", "content", "count"}

func scanBook(s rowScanner) (*catalog.Book, error) {
	var b catalog.Book
	if err := s.Scan(&b.ID, &b.Title, &b.Content, &b.Count); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBooks returns every book ordered by id.
func (s *Store) ListBooks(ctx context.Context) (books []*catalog.Book, err error) {
	ctx, done := s.observe(ctx, instrumentation.TableBooks, instrumentation.OperationList)
	defer func() { done(&err) }()

	query, args, err := s.builder.Select(bookColumns...).From("books").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build list books: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list books: %w", err)
	}
	defer rows.Close()

	books = []*catalog.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate books: %w", err)
	}
	return books, nil
}

// GetBook returns the book with the given id, or nil when there is none.
func (s *Store) GetBook(ctx context.Context, id int64) (b *catalog.Book, err error) {
	ctx, done := s.observe(ctx, instrumentation.TableBooks, instrumentation.OperationGet,
		instrumentation.NewSpanAttributeBuilder().WithBookID(id).Build()...)
	defer func() { done(&err) }()

	return s.getBookWhere(ctx, sq.Eq{"id": id})
}

// GetBookByTitle returns the book whose title matches exactly, or nil. When
// several rows share a title the oldest one wins.
func (s *Store) GetBookByTitle(ctx context.Context, title string) (b *catalog.Book, err error) {
	ctx, done := s.observe(ctx, instrumentation.TableBooks, instrumentation.OperationGet)
	defer func() { done(&err) }()

	return s.getBookWhere(ctx, sq.Eq{"title": title})
}

func (s *Store) getBookWhere(ctx context.Context, pred sq.Eq) (*catalog.Book, error) {
	query, args, err := s.builder.Select(bookColumns...).From("books").Where(pred).OrderBy("id").Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build get book: %w", err)
	}

	b, err := scanBook(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get book: %w", err)
	}
	return b, nil
}

// InsertBook adds a book and returns its new id.
func (s *Store) InsertBook(ctx context.Context, title, content string, count int) (id int64, err error) {
	ctx, done := s.observe(ctx, instrumentation.TableBooks, instrumentation.OperationCreate)
	defer func() { done(&err) }()

	query, args, err := s.builder.Insert("books").
		Columns("title", "content", "count").
		Values(title, content, count).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("sqlite: build insert book: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert book: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert book id: %w", err)
	}
	return id, nil
}

// UpdateBook overwrites title, content and count. summary is written to the
// content column. A missing id is not an error.
func (s *Store) UpdateBook(ctx context.Context, id int64, title, summary string, count int) (err error) {
	ctx, done := s.observe(ctx, instrumentation.TableBooks, instrumentation.OperationUpdate,
		instrumentation.NewSpanAttributeBuilder().WithBookID(id).Build()...)
	defer func() { done(&err) }()

	query, args, err := s.builder.Update("books").
		Set("title", title).
		Set("content", summary).
		Set("count", count).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build update book: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: update book %d: %w", id, err)
	}
	return nil
}

// DeleteBook removes a book. A missing id is not an error.
func (s *Store) DeleteBook(ctx context.Context, id int64) (err error) {
	ctx, done := s.observe(ctx, instrumentation.TableBooks, instrumentation.OperationDelete,
		instrumentation.NewSpanAttributeBuilder().WithBookID(id).Build()...)
	defer func() { done(&err) }()

	query, args, err := s.builder.Delete("books").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build delete book: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: delete book %d: %w", id, err)
	}
	return nil
}

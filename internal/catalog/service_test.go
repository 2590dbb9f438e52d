package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/bookshelf/internal/catalog"
	"github.com/teemow/bookshelf/internal/storage/memory"
)

func TestBookForm_Validate(t *testing.T) {
	tests := []struct {
		name    string
		form    catalog.BookForm
		wantMsg string
		want    catalog.Book
	}{
		{
			name: "valid",
			form: catalog.BookForm{Title: "Dune", Content: "Spice", Count: "3"},
			want: catalog.Book{Title: "Dune", Content: "Spice", Count: 3},
		},
		{
			name: "zero count is allowed",
			form: catalog.BookForm{Title: "Dune", Content: "Spice", Count: "0"},
			want: catalog.Book{Title: "Dune", Content: "Spice", Count: 0},
		},
		{
			name:    "missing title wins over everything",
			form:    catalog.BookForm{},
			wantMsg: catalog.MsgTitleRequired,
		},
		{
			name:    "missing count",
			form:    catalog.BookForm{Title: "Dune", Content: "Spice"},
			wantMsg: catalog.MsgCountInvalid,
		},
		{
			name:    "non-numeric count",
			form:    catalog.BookForm{Title: "Dune", Content: "Spice", Count: "many"},
			wantMsg: catalog.MsgCountInvalid,
		},
		{
			name:    "negative count",
			form:    catalog.BookForm{Title: "Dune", Content: "Spice", Count: "-1"},
			wantMsg: catalog.MsgCountInvalid,
		},
		{
			name:    "count checked before content",
			form:    catalog.BookForm{Title: "Dune", Count: "-1"},
			wantMsg: catalog.MsgCountInvalid,
		},
		{
			name:    "missing content",
			form:    catalog.BookForm{Title: "Dune", Count: "1"},
			wantMsg: catalog.MsgContentRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.form.Validate()
			if tt.wantMsg == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, catalog.ErrValidation))
			assert.Equal(t, tt.wantMsg, catalog.UserMessage(err))
		})
	}
}

func TestService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc := catalog.NewService(memory.New())

	b, err := svc.Create(ctx, catalog.BookForm{Title: "Dune", Content: "Spice", Count: "3"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.ID)

	got, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	_, err = svc.Get(ctx, 99)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestService_CreateDuplicateTitle(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := catalog.NewService(store)

	_, err := svc.Create(ctx, catalog.BookForm{Title: "Dune", Content: "Spice", Count: "3"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, catalog.BookForm{Title: "Dune", Content: "Other", Count: "1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrDuplicateTitle)
	assert.ErrorIs(t, err, catalog.ErrValidation)
	assert.Equal(t, catalog.MsgTitleExists, catalog.UserMessage(err))

	// Titles are compared exactly.
	_, err = svc.Create(ctx, catalog.BookForm{Title: "dune", Content: "Other", Count: "1"})
	require.NoError(t, err)

	books, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 2)
}

func TestService_CreateRejectedWritesNothing(t *testing.T) {
	ctx := context.Background()
	svc := catalog.NewService(memory.New())

	_, err := svc.Create(ctx, catalog.BookForm{Title: "Dune", Content: "Spice", Count: "-1"})
	require.Error(t, err)

	books, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc := catalog.NewService(memory.New())

	dune, err := svc.Create(ctx, catalog.BookForm{Title: "Dune", Content: "Spice", Count: "3"})
	require.NoError(t, err)
	emma, err := svc.Create(ctx, catalog.BookForm{Title: "Emma", Content: "Matchmaking", Count: "1"})
	require.NoError(t, err)

	t.Run("keeping its own title", func(t *testing.T) {
		b, err := svc.Update(ctx, dune.ID, catalog.BookForm{Title: "Dune", Content: "Desert", Count: "4"})
		require.NoError(t, err)
		assert.Equal(t, "Desert", b.Content)
		assert.Equal(t, 4, b.Count)
	})

	t.Run("taking another book's title", func(t *testing.T) {
		_, err := svc.Update(ctx, emma.ID, catalog.BookForm{Title: "Dune", Content: "x", Count: "1"})
		assert.ErrorIs(t, err, catalog.ErrDuplicateTitle)

		got, err := svc.Get(ctx, emma.ID)
		require.NoError(t, err)
		assert.Equal(t, "Emma", got.Title)
	})

	t.Run("invalid form", func(t *testing.T) {
		_, err := svc.Update(ctx, emma.ID, catalog.BookForm{Title: "Emma", Content: "", Count: "1"})
		assert.Equal(t, catalog.MsgContentRequired, catalog.UserMessage(err))
	})

	t.Run("missing book", func(t *testing.T) {
		_, err := svc.Update(ctx, 42, catalog.BookForm{Title: "X", Content: "Y", Count: "1"})
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := catalog.NewService(memory.New())

	dune, err := svc.Create(ctx, catalog.BookForm{Title: "Dune", Content: "Spice", Count: "3"})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, dune.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", deleted.Title)

	_, err = svc.Get(ctx, dune.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = svc.Delete(ctx, dune.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestFormFromBook(t *testing.T) {
	f := catalog.FormFromBook(&catalog.Book{ID: 1, Title: "Dune", Content: "Spice", Count: 3})
	assert.Equal(t, catalog.BookForm{Title: "Dune", Content: "Spice", Count: "3"}, f)
}

package reviews

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/librisvault/librisvault-backend/pkg/db/models"
)

func newSQLiteRepo(t *testing.T) Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`CREATE TABLE reviews (
		id text PRIMARY KEY,
		book_id text NOT NULL,
		user_id text NOT NULL,
		rating integer NOT NULL,
		body text,
		created_at datetime,
		updated_at datetime,
		UNIQUE (book_id, user_id)
	)`).Error)
	return NewRepository(conn)
}

func TestRepositorySummary(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	bookID := uuid.New()

	empty, err := repo.Summary(ctx, bookID)
	require.NoError(t, err)
	require.Equal(t, int64(0), empty.Count)
	require.True(t, empty.Average.IsZero())

	for _, rating := range []int{5, 3, 3} {
		require.NoError(t, repo.Create(ctx, &models.Review{ID: uuid.New(), BookID: bookID, UserID: uuid.New(), Rating: rating}))
	}
	require.NoError(t, repo.Create(ctx, &models.Review{ID: uuid.New(), BookID: uuid.New(), UserID: uuid.New(), Rating: 1}))

	summary, err := repo.Summary(ctx, bookID)
	require.NoError(t, err)
	require.Equal(t, int64(3), summary.Count)
	require.Equal(t, "3.67", summary.Average.StringFixed(2))

	rows, err := repo.ListByBook(ctx, bookID, 10, nil)
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestRepositoryRejectsDuplicatePair(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	bookID, userID := uuid.New(), uuid.New()

	require.NoError(t, repo.Create(ctx, &models.Review{ID: uuid.New(), BookID: bookID, UserID: userID, Rating: 4}))
	err := repo.Create(ctx, &models.Review{ID: uuid.New(), BookID: bookID, UserID: userID, Rating: 2})
	require.Error(t, err)
}

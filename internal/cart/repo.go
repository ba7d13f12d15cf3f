package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListLines(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("book_id ASC").
		Find(&lines).Error
	return lines, err
}

// addGuardedSQL inserts or grows the line in one statement. Both branches only
// write when the resulting quantity fits the book's stock.
const addGuardedSQL = `
INSERT INTO cart_lines (user_id, book_id, quantity, unit_price, line_price, created_at, updated_at)
SELECT ?::uuid, b.id, ?::int, ?::numeric, ?::int * ?::numeric, now(), now()
FROM books b
WHERE b.id = ?::uuid AND b.stock >= ?::int
ON CONFLICT (user_id, book_id) DO UPDATE
SET quantity   = cart_lines.quantity + EXCLUDED.quantity,
    unit_price = EXCLUDED.unit_price,
    line_price = (cart_lines.quantity + EXCLUDED.quantity) * EXCLUDED.unit_price,
    updated_at = now()
WHERE cart_lines.quantity + EXCLUDED.quantity <= (SELECT stock FROM books WHERE id = EXCLUDED.book_id)`

// AddGuarded reports false when the stock guard rejected the write.
func (r *repository) AddGuarded(ctx context.Context, userID, bookID uuid.UUID, delta int, unitPrice decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Exec(addGuardedSQL,
		userID, delta, unitPrice, delta, unitPrice,
		bookID, delta,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Decrement lowers the quantity when the line keeps at least one unit. It
// reports false when the line is absent or would drop to zero.
func (r *repository) Decrement(ctx context.Context, userID, bookID uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("user_id = ? AND book_id = ? AND quantity > ?", userID, bookID, delta).
		UpdateColumns(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", delta),
			"line_price": gorm.Expr("(quantity - ?) * unit_price", delta),
			"updated_at": gorm.Expr("now()"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) DeleteLine(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&models.CartLine{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartLine{}).Error
}

// DeleteByStore removes every cart line that references one of the store's books.
func (r *repository) DeleteByStore(ctx context.Context, storeID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("book_id IN (?)", r.db.Model(&models.Book{}).Select("id").Where("store_id = ?", storeID)).
		Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}

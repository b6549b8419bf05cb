package pharmacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrMedicineNotFound = errors.New("medicine not found")

// StockError reports a cart line that asks for more than is in stock.
type StockError struct {
	Medicine  string
	Available int
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available, %d requested", e.Medicine, e.Available, e.Requested)
}

type Repository interface {
	ListMedicines(ctx context.Context, f ListFilter, limit, offset int) ([]*Medicine, int, error)
	// LockMedicine reads a medicine row and holds a row lock on it until the
	// surrounding transaction ends.
	LockMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error)
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) error
	CreateOrder(ctx context.Context, o *Order) error
	CreateItem(ctx context.Context, item *OrderItem) error
	ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, int, error)
}

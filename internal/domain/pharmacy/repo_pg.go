package pharmacy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appointease/appointease/internal/platform/db"
	"github.com/appointease/appointease/internal/platform/search"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryer {
	return db.Conn(ctx, r.pool)
}

const medicineCols = `id, name, category, description, price, stock_quantity, requires_prescription, created_at`

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.Name, &m.Category, &m.Description, &m.Price,
		&m.StockQuantity, &m.RequiresPrescription, &m.CreatedAt)
	return &m, err
}

func (r *repoPG) ListMedicines(ctx context.Context, f ListFilter, limit, offset int) ([]*Medicine, int, error) {
	q := search.NewQuery(medicineCols, "medicines").
		Where("stock_quantity > 0").
		Equal("category", f.Category, AllCategories).
		ContainsAny(f.Search, "name", "description").
		OrderBy("name ASC, id")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, q.CountSQL(), q.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count medicines: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list medicines: %w", err)
	}
	defer rows.Close()

	items := []*Medicine{}
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *repoPG) LockMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	m, err := scanMedicine(r.conn(ctx).QueryRow(ctx,
		`SELECT `+medicineCols+` FROM medicines WHERE id = $1 FOR UPDATE`, id))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("%w: %s", ErrMedicineNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock medicine: %w", err)
	}
	return m, nil
}

func (r *repoPG) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	var left int
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE medicines SET stock_quantity = stock_quantity - $2
		WHERE id = $1 AND stock_quantity >= $2
		RETURNING stock_quantity`, id, qty).Scan(&left)
	if db.IsNoRows(err) {
		return &StockError{Medicine: id.String(), Requested: qty}
	}
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	return nil
}

func (r *repoPG) CreateOrder(ctx context.Context, o *Order) error {
	o.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO orders (id, user_id, order_type, total_amount, delivery_address, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, o.OrderType, o.TotalAmount, o.DeliveryAddress, o.Status,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *repoPG) CreateItem(ctx context.Context, item *OrderItem) error {
	item.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO order_items (id, order_id, medicine_id, quantity, price)
		VALUES ($1,$2,$3,$4,$5)`,
		item.ID, item.OrderID, item.MedicineID, item.Quantity, item.Price)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

func (r *repoPG) ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, user_id, order_type, total_amount, delivery_address, status, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []*Order{}
	byID := make(map[uuid.UUID]*Order)
	ids := []uuid.UUID{}
	for rows.Next() {
		o := &Order{Items: []*OrderItem{}}
		if err := rows.Scan(&o.ID, &o.UserID, &o.OrderType, &o.TotalAmount, &o.DeliveryAddress,
			&o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return orders, total, nil
	}

	itemRows, err := r.conn(ctx).Query(ctx, `
		SELECT oi.id, oi.order_id, oi.medicine_id, m.name, oi.quantity, oi.price
		FROM order_items oi
		JOIN medicines m ON m.id = oi.medicine_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, m.name`, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("list order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var it OrderItem
		if err := itemRows.Scan(&it.ID, &it.OrderID, &it.MedicineID, &it.MedicineName, &it.Quantity, &it.Price); err != nil {
			return nil, 0, err
		}
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, &it)
		}
	}
	return orders, total, itemRows.Err()
}

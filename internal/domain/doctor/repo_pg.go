package doctor

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

const doctorCols = `d.id, d.user_id, d.specialty, d.location, d.fee, d.rating,
	d.experience_years, d.review_count, d.available,
	u.first_name, u.last_name, u.email, u.phone, d.created_at`

const doctorFrom = `doctors d JOIN users u ON u.id = d.user_id`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.Specialty, &d.Location, &d.Fee, &d.Rating,
		&d.ExperienceYears, &d.ReviewCount, &d.Available,
		&d.FirstName, &d.LastName, &d.Email, &d.Phone, &d.CreatedAt)
	return &d, err
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Doctor, int, error) {
	q := search.NewQuery(doctorCols, doctorFrom).
		Where("u.user_type = 'doctor'").
		Equal("d.specialty", f.Specialty, AllSpecialties).
		Equal("d.location", f.Location, AllLocations).
		ContainsAny(f.Search, "u.first_name", "u.last_name", "d.specialty").
		OrderBy("d.rating DESC, u.last_name ASC, d.id")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, q.CountSQL(), q.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	items := []*Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorCols+` FROM `+doctorFrom+` WHERE d.id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get doctor: %w", err)
	}
	return d, nil
}

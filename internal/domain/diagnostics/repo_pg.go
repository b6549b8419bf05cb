package diagnostics

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appointease/appointease/internal/platform/db"
	"github.com/appointease/appointease/internal/platform/search"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryer {
	return db.Conn(ctx, r.pool)
}

const testCols = `id, name, category, price, report_time, preparation, popular, created_at`

func (r *repoPG) ListTests(ctx context.Context, f ListFilter, limit, offset int) ([]*Test, int, error) {
	q := search.NewQuery(testCols, "diagnostic_tests").
		Equal("category", f.Category, AllTests).
		ContainsAny(f.Search, "name", "category").
		OrderBy("popular DESC, name ASC, id")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, q.CountSQL(), q.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count diagnostic tests: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list diagnostic tests: %w", err)
	}
	defer rows.Close()

	items := []*Test{}
	for rows.Next() {
		var t Test
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.Price, &t.ReportTime,
			&t.Preparation, &t.Popular, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &t)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListReports(ctx context.Context, patientID uuid.UUID, author *uuid.UUID, limit, offset int) ([]*Report, int, error) {
	q := search.NewQuery(`tr.id, tr.patient_id, tr.doctor_id, tr.test_name,
		to_char(tr.test_date, 'YYYY-MM-DD'), tr.result_summary, tr.status, tr.file_url, tr.created_at,
		u.first_name, u.last_name`,
		`test_reports tr LEFT JOIN users u ON u.id = tr.doctor_id`)
	q.Where(fmt.Sprintf("tr.patient_id = $%d", q.Idx()), patientID)
	if author != nil {
		q.Where(fmt.Sprintf("tr.doctor_id = $%d", q.Idx()), *author)
	}
	q.OrderBy("tr.test_date DESC, tr.created_at DESC, tr.id")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, q.CountSQL(), q.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	items := []*Report{}
	for rows.Next() {
		var rep Report
		if err := rows.Scan(&rep.ID, &rep.PatientID, &rep.DoctorID, &rep.TestName, &rep.TestDate,
			&rep.ResultSummary, &rep.Status, &rep.FileURL, &rep.CreatedAt,
			&rep.DoctorFirstName, &rep.DoctorLastName); err != nil {
			return nil, 0, err
		}
		items = append(items, &rep)
	}
	return items, total, rows.Err()
}

func (r *repoPG) HasAuthored(ctx context.Context, authorID, patientID uuid.UUID) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM test_reports WHERE doctor_id = $1 AND patient_id = $2)`,
		authorID, patientID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check report author: %w", err)
	}
	return ok, nil
}

func (r *repoPG) CreateReport(ctx context.Context, rep *Report) error {
	rep.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO test_reports (id, patient_id, doctor_id, test_name, test_date,
			result_summary, status, file_url)
		VALUES ($1,$2,$3,$4,$5::date,$6,$7,$8)
		RETURNING created_at`,
		rep.ID, rep.PatientID, rep.DoctorID, rep.TestName, rep.TestDate,
		rep.ResultSummary, rep.Status, rep.FileURL,
	).Scan(&rep.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *repoPG) UserType(ctx context.Context, userID uuid.UUID) (string, error) {
	var t string
	err := r.conn(ctx).QueryRow(ctx, `SELECT user_type FROM users WHERE id = $1`, userID).Scan(&t)
	if db.IsNoRows(err) {
		return "", ErrPatientNotFound
	}
	if err != nil {
		return "", fmt.Errorf("user type: %w", err)
	}
	return t, nil
}

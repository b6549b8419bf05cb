package dashboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appointease/appointease/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryer {
	return db.Conn(ctx, r.pool)
}

func (r *repoPG) UserType(ctx context.Context, userID uuid.UUID) (string, error) {
	var t string
	err := r.conn(ctx).QueryRow(ctx, `SELECT user_type FROM users WHERE id = $1`, userID).Scan(&t)
	if db.IsNoRows(err) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("user type: %w", err)
	}
	return t, nil
}

func (r *repoPG) PatientStats(ctx context.Context, userID uuid.UUID, today string) (*PatientStats, error) {
	var s PatientStats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM appointments
				WHERE patient_id = $1 AND status = 'scheduled' AND appointment_date >= $2::date),
			(SELECT COUNT(*) FROM orders
				WHERE user_id = $1 AND status IN ('pending', 'processing')),
			(SELECT COUNT(*) FROM test_reports WHERE patient_id = $1),
			(SELECT COUNT(*) FROM appointments
				WHERE patient_id = $1 AND appointment_type = 'home_visit')`,
		userID, today,
	).Scan(&s.UpcomingAppointments, &s.ActiveOrders, &s.TotalReports, &s.HomeVisits)
	if err != nil {
		return nil, fmt.Errorf("patient stats: %w", err)
	}
	return &s, nil
}

func (r *repoPG) DoctorStats(ctx context.Context, userID uuid.UUID, today string) (*DoctorStats, error) {
	var s DoctorStats
	err := r.conn(ctx).QueryRow(ctx, `
		WITH doc AS (SELECT id, fee, rating FROM doctors WHERE user_id = $1)
		SELECT
			(SELECT COUNT(*) FROM appointments a JOIN doc ON a.doctor_id = doc.id
				WHERE a.appointment_date = $2::date AND a.status <> 'cancelled'),
			(SELECT COUNT(DISTINCT a.patient_id) FROM appointments a JOIN doc ON a.doctor_id = doc.id),
			(SELECT COALESCE(SUM(doc.fee), 0)::float8 FROM appointments a JOIN doc ON a.doctor_id = doc.id
				WHERE a.status <> 'cancelled'
					AND a.appointment_date >= date_trunc('month', $2::date)
					AND a.appointment_date < date_trunc('month', $2::date) + INTERVAL '1 month'),
			(SELECT COALESCE(AVG(doc.rating), 0)::float8 FROM doc)`,
		userID, today,
	).Scan(&s.TodayAppointments, &s.TotalPatients, &s.MonthlyEarnings, &s.Rating)
	if err != nil {
		return nil, fmt.Errorf("doctor stats: %w", err)
	}
	return &s, nil
}

func (r *repoPG) AdminStats(ctx context.Context, today string) (*AdminStats, error) {
	var s AdminStats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE user_type = 'patient'),
			(SELECT COUNT(*) FROM doctors),
			(SELECT COUNT(*) FROM appointments
				WHERE appointment_date = $1::date AND status <> 'cancelled'),
			(SELECT COALESCE(SUM(total_amount), 0)::float8 FROM orders
				WHERE status <> 'cancelled'
					AND created_at >= date_trunc('month', $1::date)
					AND created_at < date_trunc('month', $1::date) + INTERVAL '1 month')`,
		today,
	).Scan(&s.TotalPatients, &s.TotalDoctors, &s.TodayAppointments, &s.MonthlyRevenue)
	if err != nil {
		return nil, fmt.Errorf("admin stats: %w", err)
	}
	return &s, nil
}

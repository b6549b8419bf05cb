package appointment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appointease/appointease/internal/platform/db"
)

// slotIndex enforces one scheduled appointment per doctor, date and time.
const slotIndex = "appointments_scheduled_slot_idx"

// doctorFK fails the insert when the doctor row vanished after FindDoctor.
const doctorFK = "appointments_doctor_id_fkey"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryer {
	return db.Conn(ctx, r.pool)
}

const apptCols = `a.id, a.patient_id, a.doctor_id,
	to_char(a.appointment_date, 'YYYY-MM-DD'), to_char(a.appointment_time, 'HH24:MI'),
	a.appointment_type, a.symptoms, a.status, a.created_at, a.updated_at`

func scanAppointment(row pgx.Row, extra ...interface{}) (*Appointment, error) {
	var a Appointment
	dest := []interface{}{&a.ID, &a.PatientID, &a.DoctorID, &a.AppointmentDate, &a.AppointmentTime,
		&a.AppointmentType, &a.Symptoms, &a.Status, &a.CreatedAt, &a.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, appointment_date, appointment_time,
			appointment_type, symptoms, status)
		VALUES ($1,$2,$3,$4::date,$5::time,$6,$7,$8)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.AppointmentDate, a.AppointmentTime,
		a.AppointmentType, a.Symptoms, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if db.IsUniqueViolation(err, slotIndex) {
		return ErrSlotTaken
	}
	if db.IsForeignKeyViolation(err, doctorFK) {
		return ErrDoctorNotFound
	}
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments a WHERE a.id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (r *repoPG) SlotTaken(ctx context.Context, doctorID uuid.UUID, date, clock string) (bool, error) {
	var taken bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND appointment_date = $2::date
				AND appointment_time = $3::time AND status = 'scheduled'
		)`, doctorID, date, clock).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return taken, nil
}

func (r *repoPG) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+`, d.specialty, d.fee, u.first_name, u.last_name
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		JOIN users u ON u.id = d.user_id
		WHERE a.patient_id = $1
		ORDER BY a.appointment_date DESC, a.appointment_time DESC, a.id
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patient appointments: %w", err)
	}
	defer rows.Close()

	items := []*Appointment{}
	for rows.Next() {
		var specialty, first, last string
		var fee float64
		a, err := scanAppointment(rows, &specialty, &fee, &first, &last)
		if err != nil {
			return nil, 0, err
		}
		a.Specialty, a.Fee, a.DoctorFirstName, a.DoctorLastName = &specialty, &fee, &first, &last
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+`, u.first_name, u.last_name, u.phone
		FROM appointments a
		JOIN users u ON u.id = a.patient_id
		WHERE a.doctor_id = $1
		ORDER BY a.appointment_date ASC, a.appointment_time ASC, a.id
		LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list doctor appointments: %w", err)
	}
	defer rows.Close()

	items := []*Appointment{}
	for rows.Next() {
		var first, last, phone string
		a, err := scanAppointment(rows, &first, &last, &phone)
		if err != nil {
			return nil, 0, err
		}
		a.PatientFirstName, a.PatientLastName, a.PatientPhone = &first, &last, &phone
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (r *repoPG) FindDoctor(ctx context.Context, id uuid.UUID) (*DoctorRef, error) {
	return r.findDoctor(ctx, `SELECT id, user_id FROM doctors WHERE id = $1`, id)
}

func (r *repoPG) FindDoctorByUser(ctx context.Context, userID uuid.UUID) (*DoctorRef, error) {
	return r.findDoctor(ctx, `SELECT id, user_id FROM doctors WHERE user_id = $1`, userID)
}

func (r *repoPG) findDoctor(ctx context.Context, sql string, arg uuid.UUID) (*DoctorRef, error) {
	var d DoctorRef
	err := r.conn(ctx).QueryRow(ctx, sql, arg).Scan(&d.ID, &d.UserID)
	if db.IsNoRows(err) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find doctor: %w", err)
	}
	return &d, nil
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

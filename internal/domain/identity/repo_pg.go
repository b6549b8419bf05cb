package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appointease/appointease/internal/platform/db"
)

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) db.Queryer {
	return db.Conn(ctx, r.pool)
}

const userCols = `id, user_type, first_name, last_name, email, phone,
	to_char(date_of_birth, 'YYYY-MM-DD'), gender, address, city, zip_code,
	password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.UserType, &u.FirstName, &u.LastName, &u.Email, &u.Phone,
		&u.DateOfBirth, &u.Gender, &u.Address, &u.City, &u.ZipCode,
		&u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, user_type, first_name, last_name, email, phone,
			date_of_birth, gender, address, city, zip_code, password_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7::date,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		u.ID, u.UserType, u.FirstName, u.LastName, u.Email, u.Phone,
		u.DateOfBirth, u.Gender, u.Address, u.City, u.ZipCode, u.PasswordHash,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if db.IsUniqueViolation(err, "") {
		return ErrEmailOrPhoneTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) FindForLogin(ctx context.Context, email, phone, userType string) (*User, error) {
	column, value := "email", email
	if email == "" {
		column, value = "phone", phone
	}
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE `+column+` = $1 AND user_type = $2`, value, userType))
}

func (r *userRepoPG) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR phone = $2)`, email, phone).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check existing user: %w", err)
	}
	return exists, nil
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE users SET first_name=$2, last_name=$3, phone=$4, date_of_birth=$5::date,
			gender=$6, address=$7, city=$8, zip_code=$9, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		u.ID, u.FirstName, u.LastName, u.Phone, u.DateOfBirth,
		u.Gender, u.Address, u.City, u.ZipCode,
	).Scan(&u.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	if db.IsUniqueViolation(err, "users_phone_key") {
		return ErrPhoneTaken
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) Create(ctx context.Context, d *DoctorProfile) error {
	d.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO doctors (id, user_id, specialty, location, fee)
		VALUES ($1,$2,$3,$4,$5)`,
		d.ID, d.UserID, d.Specialty, d.Location, d.Fee)
	if err != nil {
		return fmt.Errorf("insert doctor: %w", err)
	}
	return nil
}

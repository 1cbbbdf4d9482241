package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/nexora-chat/apiserver/types"
)

const uniqueViolationCode = "23505"

const userColumns = `id, email, full_name, password_hash, profile_pic, bio,
		native_language, learning_language, location, is_onboarded, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`
	return r.queryOne(ctx, query, email)
}

// Create inserts a new user and assigns its identifier. A collision with
// the unique email index is reported as ErrDuplicateEmail.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (id, email, full_name, password_hash, profile_pic, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.FullName,
		user.PasswordHash,
		user.ProfilePic,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrDuplicateEmail
		}
		return types.User{}, err
	}
	return user, nil
}

// UpdateProfile applies the onboarding fields to a user and marks it
// onboarded. Only the columns named here are ever written; arbitrary
// caller-supplied fields never reach the row.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, profile types.Profile) (types.User, error) {
	const query = `
		UPDATE users
		SET full_name = $1,
			bio = $2,
			native_language = $3,
			learning_language = $4,
			location = $5,
			is_onboarded = TRUE,
			updated_at = $6
		WHERE id = $7
		RETURNING ` + userColumns
	var user types.User
	err := scanUser(r.db.QueryRowContext(
		ctx,
		query,
		profile.FullName,
		profile.Bio,
		profile.NativeLanguage,
		profile.LearningLanguage,
		profile.Location,
		time.Now(),
		id,
	), &user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) queryOne(ctx context.Context, query string, arg any) (types.User, error) {
	var user types.User
	err := scanUser(r.db.QueryRowContext(ctx, query, arg), &user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func scanUser(row *sql.Row, user *types.User) error {
	return row.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.ProfilePic,
		&user.Bio,
		&user.NativeLanguage,
		&user.LearningLanguage,
		&user.Location,
		&user.IsOnboarded,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}

package repos

import (
	"context"
	"fmt"
	"strings"

	"nexusmarket/internal/domain"

	"github.com/jmoiron/sqlx"
)

const userCols = `id, first_name, last_name, email, password_hash, phone, role, created_at, updated_at`

type UserRepo struct{ db sqlx.ExtContext }

func NewUserRepo(db sqlx.ExtContext) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) WithTx(tx *sqlx.Tx) *UserRepo { return &UserRepo{db: tx} }

// Create inserts u and returns it with id and timestamps filled in.
func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	var id int64
	err := sqlx.GetContext(ctx, r.db, &id, r.db.Rebind(`
		INSERT INTO users(first_name, last_name, email, password_hash, phone, role)
		VALUES(?, ?, ?, ?, ?, ?)
		RETURNING id
	`), u.FirstName, u.LastName, strings.ToLower(u.Email), u.Hash, u.Phone, string(u.Role))
	if isUniqueViolation(err) {
		return domain.User{}, fmt.Errorf("create user %s: %w", strings.ToLower(u.Email), ErrDuplicate)
	}
	if err != nil {
		return domain.User{}, err
	}
	return r.ByID(ctx, id)
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, r.db, &u,
		r.db.Rebind(`SELECT `+userCols+` FROM users WHERE email = LOWER(?)`), email)
	return u, err
}

func (r *UserRepo) ByID(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, r.db, &u, r.db.Rebind(`SELECT `+userCols+` FROM users WHERE id = ?`), id)
	return u, err
}

func (r *UserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n,
		r.db.Rebind(`SELECT COUNT(*) FROM users WHERE email = LOWER(?)`), email)
	return n > 0, err
}

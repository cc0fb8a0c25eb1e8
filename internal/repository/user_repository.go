package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/show-reservation/internal/database"
	"github.com/iliyamo/show-reservation/internal/model"
)

// UserRepo is the MySQL UserStore.
type UserRepo struct{ db database.DBTXContext }

func NewUserRepo(db database.DBTXContext) *UserRepo { return &UserRepo{db: db} }

const userColumns = "id,email,nickname,password_hash,role,created_at"

// Create inserts user and assigns its ID. Email is stored lower-cased.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.db(ctx).ExecContext(ctx,
		"INSERT INTO users (email, nickname, password_hash, role) VALUES (?,?,?,?)",
		u.Email, u.Nickname, u.PasswordHash, u.Role)
	if err != nil {
		switch idx := duplicateIndex(err); {
		case strings.HasSuffix(idx, "uq_users_email"):
			return ErrEmailExists
		case strings.HasSuffix(idx, "uq_users_nickname"):
			return ErrNicknameExists
		}
		return mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return mapError(r.db(ctx).GetContext(ctx, u,
		"SELECT "+userColumns+" FROM users WHERE id=?", u.ID))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.db(ctx).GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	return u, mapError(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.db(ctx).GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return u, mapError(err)
}

package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/user"
)

const userColumns = `id, name, COALESCE(username, '') AS username, COALESCE(email, '') AS email, is_active, roles,
	password_hash, created_at, updated_at, last_login`

// userRow maps the roles column, which user.User leaves out.
type userRow struct {
	user.User
	Roles pq.StringArray `db:"roles"`
}

func (r userRow) toUser() user.User {
	usr := r.User
	usr.Roles = []string(r.Roles)
	return usr
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	excluded := make([]int64, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded = append(excluded, int64(usr.ID))
	}

	var found struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	err := repo.db.GetContext(ctx, &found, `
		SELECT COALESCE(username, '') AS username, COALESCE(email, '') AS email FROM "user"
		WHERE (username = NULLIF($1, '') OR email = NULLIF($2, '')) AND NOT (id = ANY($3))
		LIMIT 1`,
		username, email, pq.Array(excluded),
	)
	switch {
	case err == sql.ErrNoRows:
		return nil
	case err != nil:
		return errors.Wrap(err, "checking username uniqueness")
	case username != "" && found.Username == username:
		return user.ErrUsernameExists
	default:
		return user.ErrEmailExists
	}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO "user" (name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		usr.Name, usr.Username, usr.Email, usr.IsActive, pq.StringArray(usr.Roles), usr.PasswordHash,
		usr.CreatedAt, usr.UpdatedAt, usr.LastLogin,
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) getUser(ctx context.Context, where string, args ...interface{}) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM "user" WHERE `+where+` LIMIT 1`, args...)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	return repo.getUser(ctx, "id = $1", id)
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.getUser(ctx, "username = $1 OR email = $1", username)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE "user" SET name = $2, username = NULLIF($3, ''), email = NULLIF($4, ''), is_active = $5, roles = $6,
			password_hash = $7, updated_at = $8, last_login = $9
		WHERE id = $1`,
		usr.ID, usr.Name, usr.Username, usr.Email, usr.IsActive, pq.StringArray(usr.Roles),
		usr.PasswordHash, usr.UpdatedAt, usr.LastLogin,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	} else if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

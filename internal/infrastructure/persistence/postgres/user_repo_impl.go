package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/repository"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

var _ repository.UserRepository = (*UserRepoImpl)(nil)

const pgUniqueViolation = "23505"

// Schema creates the users table. Emails are unique regardless of case.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	email         TEXT        NOT NULL,
	password_hash TEXT        NOT NULL,
	role          TEXT        NOT NULL DEFAULT 'USER' CHECK (role IN ('USER', 'ADMINISTRATOR')),
	is_active     BOOLEAN     NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_key ON users (lower(email));
CREATE INDEX IF NOT EXISTS users_created_at_idx ON users (created_at DESC);
`

const userColumns = `id, email, password_hash, role, is_active, created_at, updated_at`

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepoImpl implements UserRepository on PostgreSQL.
type UserRepoImpl struct {
	db     querier
	logger logger.Logger
}

// NewUserRepository creates a PostgreSQL-based user repository.
func NewUserRepository(db querier, log logger.Logger) *UserRepoImpl {
	return &UserRepoImpl{db: db, logger: log}
}

// Migrate creates the schema if it does not exist.
func (r *UserRepoImpl) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate users table: %w", err)
	}
	return nil
}

func (r *UserRepoImpl) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, r.mapErr(ctx, "find user by email", err)
	}
	return u, nil
}

func (r *UserRepoImpl) FindByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, r.mapErr(ctx, "find user by id", err)
	}
	return u, nil
}

func (r *UserRepoImpl) Create(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		user.Email, user.PasswordHash, string(user.Role), user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return r.mapErr(ctx, "create user", err)
	}

	r.logger.Info(ctx, "User created", logger.Fields{"user_id": user.ID, "role": string(user.Role)})
	return nil
}

func (r *UserRepoImpl) Update(ctx context.Context, user *models.User) error {
	err := r.db.QueryRow(ctx, `
		UPDATE users
		SET email = $2, password_hash = $3, role = $4, is_active = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		user.ID, user.Email, user.PasswordHash, string(user.Role), user.IsActive,
	).Scan(&user.UpdatedAt)
	if err != nil {
		return r.mapErr(ctx, "update user", err)
	}
	return nil
}

func (r *UserRepoImpl) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return r.mapErr(ctx, "delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrUserNotFound
	}
	r.logger.Info(ctx, "User deleted", logger.Fields{"user_id": id})
	return nil
}

func (r *UserRepoImpl) Count(ctx context.Context, filter models.UserFilter) (int64, error) {
	where, args := buildFilter(filter)
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users`+where, args...).Scan(&n); err != nil {
		return 0, r.mapErr(ctx, "count users", err)
	}
	return n, nil
}

func (r *UserRepoImpl) List(ctx context.Context, filter models.UserFilter, opts models.ListOptions) ([]*models.User, error) {
	where, args := buildFilter(filter)

	order := ` ORDER BY created_at DESC, id DESC`
	if opts.Order == models.OrderByEmailAsc {
		order = ` ORDER BY email ASC, id ASC`
	}

	query := `SELECT ` + userColumns + ` FROM users` + where + order
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapErr(ctx, "list users", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, r.mapErr(ctx, "scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapErr(ctx, "list users", err)
	}
	return users, nil
}

func buildFilter(f models.UserFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.EmailContains != "" {
		args = append(args, "%"+escapeLike(f.EmailContains)+"%")
		conds = append(conds, fmt.Sprintf(`email ILIKE $%d`, len(args)))
	}
	if f.Role != "" {
		args = append(args, string(f.Role))
		conds = append(conds, fmt.Sprintf(`role = $%d`, len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		conds = append(conds, fmt.Sprintf(`is_active = $%d`, len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(conds, ` AND `), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u    models.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

func (r *UserRepoImpl) mapErr(ctx context.Context, op string, err error) error {
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.ErrUserNotFound
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return errors.ErrEmailExists
	}
	r.logger.Error(ctx, "Database operation failed", err, logger.Fields{"op": op})
	return errors.ErrInternal.WithError(fmt.Errorf("%s: %w", op, err))
}

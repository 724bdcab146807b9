package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/room-scheduler/internal/persistence"
)

type userRow struct {
	Email         string         `db:"email"`
	PasswordHash  string         `db:"password_hash"`
	FirstName     string         `db:"first_name"`
	LastName      string         `db:"last_name"`
	BirthDate     wallTime       `db:"birth_date"`
	Role          string         `db:"role"`
	Sector        sql.NullString `db:"sector"`
	RoleStartDate wallTime       `db:"role_start_date"`
	CreatedAt     wallTime       `db:"created_at"`
}

const userColumns = `SELECT u.email, u.password_hash, u.first_name, u.last_name, u.birth_date,
	u.role, u.sector, u.role_start_date, u.created_at FROM users u`

func (t *txStore) FindUser(ctx context.Context, email string) (persistence.User, error) {
	return t.findUser(ctx, email, "")
}

func (t *txStore) LockUser(ctx context.Context, email string) (persistence.User, error) {
	return t.findUser(ctx, email, t.dialect.lockOf("u"))
}

func (t *txStore) findUser(ctx context.Context, email, lock string) (persistence.User, error) {
	var row userRow
	if err := t.get(ctx, "find user", &row, userColumns+` WHERE u.email = ?`+lock, email); err != nil {
		return persistence.User{}, err
	}
	return persistence.User{
		Email:         row.Email,
		PasswordHash:  row.PasswordHash,
		FirstName:     row.FirstName,
		LastName:      row.LastName,
		BirthDate:     row.BirthDate.in(t.loc),
		Role:          persistence.Role(row.Role),
		Sector:        stringPtr(row.Sector),
		RoleStartDate: row.RoleStartDate.ptr(t.loc),
		CreatedAt:     row.CreatedAt.in(t.loc),
	}, nil
}

func (t *txStore) InsertUser(ctx context.Context, user persistence.User) error {
	var roleStart sql.NullString
	if user.RoleStartDate != nil {
		roleStart = sql.NullString{String: user.RoleStartDate.Format(dateLayout), Valid: true}
	}
	_, err := t.exec(ctx, "insert user",
		`INSERT INTO users (email, password_hash, first_name, last_name, birth_date, role, sector, role_start_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email, user.PasswordHash, user.FirstName, user.LastName, user.BirthDate.Format(dateLayout),
		string(user.Role), nullString(user.Sector), roleStart, t.stamp(user.CreatedAt))
	return err
}

func (t *txStore) UpdateUser(ctx context.Context, email string, changes persistence.UserChanges) error {
	if changes.Empty() {
		return nil
	}
	var (
		sets []string
		args []any
	)
	if changes.FirstName != nil {
		sets = append(sets, "first_name = ?")
		args = append(args, *changes.FirstName)
	}
	if changes.LastName != nil {
		sets = append(sets, "last_name = ?")
		args = append(args, *changes.LastName)
	}
	if changes.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *changes.PasswordHash)
	}
	args = append(args, email)
	n, err := t.exec(ctx, "update user", `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE email = ?`, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (t *txStore) DeleteUser(ctx context.Context, email string) error {
	if _, err := t.exec(ctx, "delete user sessions", `DELETE FROM sessions WHERE user_email = ?`, email); err != nil {
		return err
	}
	n, err := t.exec(ctx, "delete user", `DELETE FROM users WHERE email = ?`, email)
	if err != nil {
		return err
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

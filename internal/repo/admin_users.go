package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"careerdesk/internal/domain"
)

// Identity is a credential row in auth_identities. It is deliberately separate
// from the admin_users profile: sign-up writes both in sequence, and sign-in
// requires both to resolve.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    string
}

func (r Repo) InsertIdentity(ctx context.Context, id Identity) error {
	if id.ID == "" || id.Email == "" || id.PasswordHash == "" {
		return errors.New("id, email and password_hash required")
	}
	if id.CreatedAt == "" {
		id.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO auth_identities(id,email,password_hash,created_at) VALUES (?,?,?,?)`,
		id.ID, id.Email, id.PasswordHash, id.CreatedAt)
	return err
}

func (r Repo) GetIdentityByEmail(ctx context.Context, email string) (Identity, error) {
	var id Identity
	err := r.DB.QueryRowContext(ctx, `SELECT id,email,password_hash,created_at FROM auth_identities WHERE email=?`, email).
		Scan(&id.ID, &id.Email, &id.PasswordHash, &id.CreatedAt)
	if err == sql.ErrNoRows {
		return Identity{}, ErrNotFound
	}
	return id, err
}

// DeleteIdentity is the sign-up saga compensation: it removes the credential
// row when the subsequent profile insert fails.
func (r Repo) DeleteIdentity(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM auth_identities WHERE id=?`, id)
	return err
}

func (r Repo) UpdateIdentityPassword(ctx context.Context, email, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE auth_identities SET password_hash=? WHERE email=?`, passwordHash, email)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertAdminUser(ctx context.Context, u domain.AuthUser, createdAt string) error {
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO admin_users(id,email,name,role,created_at) VALUES (?,?,?,?,?)`,
		u.ID, u.Email, u.Name, u.Role, createdAt)
	return err
}

func scanAdminUser(row *sql.Row) (domain.AuthUser, error) {
	var u domain.AuthUser
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role)
	if err == sql.ErrNoRows {
		return domain.AuthUser{}, ErrNotFound
	}
	return u, err
}

func (r Repo) GetAdminUser(ctx context.Context, id string) (domain.AuthUser, error) {
	return scanAdminUser(r.DB.QueryRowContext(ctx, `SELECT id,email,name,role FROM admin_users WHERE id=?`, id))
}

func (r Repo) GetAdminUserByEmail(ctx context.Context, email string) (domain.AuthUser, error) {
	return scanAdminUser(r.DB.QueryRowContext(ctx, `SELECT id,email,name,role FROM admin_users WHERE email=?`, email))
}

func (r Repo) ListAdminUsers(ctx context.Context) ([]domain.AuthUser, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,email,name,role FROM admin_users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AuthUser
	for rows.Next() {
		var u domain.AuthUser
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

type PasswordReset struct {
	Token     string
	Email     string
	ExpiresAt string
	CreatedAt string
}

func (r Repo) InsertPasswordReset(ctx context.Context, pr PasswordReset) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO password_resets(token,email,expires_at,created_at) VALUES (?,?,?,?)`,
		pr.Token, pr.Email, pr.ExpiresAt, pr.CreatedAt)
	return err
}

// ConsumePasswordReset deletes and returns the reset row; single use.
func (r Repo) ConsumePasswordReset(ctx context.Context, token string) (PasswordReset, error) {
	var pr PasswordReset
	err := r.DB.QueryRowContext(ctx, `SELECT token,email,expires_at,created_at FROM password_resets WHERE token=?`, token).
		Scan(&pr.Token, &pr.Email, &pr.ExpiresAt, &pr.CreatedAt)
	if err == sql.ErrNoRows {
		return PasswordReset{}, ErrNotFound
	}
	if err != nil {
		return PasswordReset{}, err
	}
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM password_resets WHERE token=?`, token); err != nil {
		return PasswordReset{}, err
	}
	return pr, nil
}

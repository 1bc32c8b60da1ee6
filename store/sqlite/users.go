package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	trackd "github.com/foodontracks/trackd"
	"github.com/foodontracks/trackd/rbac"
	"github.com/google/uuid"
)

// GetUserByIdentifier returns the account registered under identifier.
func (s *Store) GetUserByIdentifier(identifier string) (trackd.UserRecord, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return trackd.UserRecord{}, fmt.Errorf("%w: identifier is required", ErrInvalidInput)
	}
	return s.scanUser(s.sqlDB.QueryRow(
		userSelectColumns+" WHERE identifier = ?",
		identifier,
	))
}

// GetUserByID returns the account with the given user ID.
func (s *Store) GetUserByID(userID string) (trackd.UserRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return trackd.UserRecord{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.scanUser(s.sqlDB.QueryRow(
		userSelectColumns+" WHERE user_id = ?",
		userID,
	))
}

// CreateUser inserts a new account and returns the stored record.
// A duplicate identifier yields trackd.ErrProviderDuplicateIdentifier.
func (s *Store) CreateUser(ctx context.Context, input trackd.CreateUserInput) (trackd.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return trackd.UserRecord{}, err
	}
	identifier := strings.TrimSpace(input.Identifier)
	if identifier == "" {
		return trackd.UserRecord{}, fmt.Errorf("%w: identifier is required", ErrInvalidInput)
	}
	if input.PasswordHash == "" {
		return trackd.UserRecord{}, fmt.Errorf("%w: password hash is required", ErrInvalidInput)
	}

	user := trackd.UserRecord{
		UserID:            uuid.NewString(),
		Identifier:        identifier,
		PasswordHash:      input.PasswordHash,
		Status:            input.Status,
		Role:              input.Role,
		PermissionVersion: input.PermissionVersion,
		AccountVersion:    input.AccountVersion,
		CreatedAt:         time.Now().UTC(),
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (
		   user_id, identifier, password_hash, status, role,
		   permission_version, account_version, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.UserID,
		user.Identifier,
		user.PasswordHash,
		int64(user.Status),
		string(user.Role),
		int64(user.PermissionVersion),
		int64(user.AccountVersion),
		toMillis(user.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return trackd.UserRecord{}, trackd.ErrProviderDuplicateIdentifier
		}
		return trackd.UserRecord{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// UpdatePasswordHash replaces the stored credential hash for userID.
func (s *Store) UpdatePasswordHash(userID string, newHash string) error {
	if newHash == "" {
		return fmt.Errorf("%w: password hash is required", ErrInvalidInput)
	}
	res, err := s.sqlDB.Exec(
		"UPDATE users SET password_hash = ? WHERE user_id = ?",
		newHash, userID,
	)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAccountStatus sets the account status and advances the account
// version so previously issued sessions and tokens stop validating.
func (s *Store) UpdateAccountStatus(ctx context.Context, userID string, status trackd.AccountStatus) (trackd.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return trackd.UserRecord{}, err
	}
	res, err := s.sqlDB.ExecContext(
		ctx,
		"UPDATE users SET status = ?, account_version = account_version + 1 WHERE user_id = ?",
		int64(status), userID,
	)
	if err != nil {
		return trackd.UserRecord{}, fmt.Errorf("update account status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return trackd.UserRecord{}, fmt.Errorf("update account status: %w", err)
	}
	if affected == 0 {
		return trackd.UserRecord{}, ErrNotFound
	}
	return s.GetUserByID(userID)
}

// UpdateRole sets the account role and advances the permission version.
func (s *Store) UpdateRole(ctx context.Context, userID string, role rbac.Role) (trackd.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return trackd.UserRecord{}, err
	}
	res, err := s.sqlDB.ExecContext(
		ctx,
		"UPDATE users SET role = ?, permission_version = permission_version + 1 WHERE user_id = ?",
		string(role), userID,
	)
	if err != nil {
		return trackd.UserRecord{}, fmt.Errorf("update role: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return trackd.UserRecord{}, fmt.Errorf("update role: %w", err)
	}
	if affected == 0 {
		return trackd.UserRecord{}, ErrNotFound
	}
	return s.GetUserByID(userID)
}

const userSelectColumns = `SELECT user_id, identifier, password_hash, status, role,
       permission_version, account_version, created_at
  FROM users`

func (s *Store) scanUser(row *sql.Row) (trackd.UserRecord, error) {
	var user trackd.UserRecord
	var status int64
	var role string
	var permVersion int64
	var accountVersion int64
	var createdAt int64
	err := row.Scan(
		&user.UserID,
		&user.Identifier,
		&user.PasswordHash,
		&status,
		&role,
		&permVersion,
		&accountVersion,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return trackd.UserRecord{}, ErrNotFound
		}
		return trackd.UserRecord{}, fmt.Errorf("scan user: %w", err)
	}
	user.Status = trackd.AccountStatus(status)
	user.Role = rbac.Role(role)
	user.PermissionVersion = uint32(permVersion)
	user.AccountVersion = uint32(accountVersion)
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

var _ trackd.UserProvider = (*Store)(nil)

package trackd

import (
	"context"
	"errors"

	"github.com/foodontracks/trackd/rbac"
)

func (e *Engine) DisableAccount(ctx context.Context, userID string) error {
	err := e.updateAccountStatusAndInvalidate(ctx, userID, AccountDisabledStatus)
	if err == nil {
		e.metricInc(MetricAccountDisabled)
	}
	e.emitAudit(ctx, auditEventAccountStatusChange, err == nil, userID, "", err, func() map[string]string {
		return map[string]string{
			"action": "disable",
		}
	})
	return err
}

func (e *Engine) EnableAccount(ctx context.Context, userID string) error {
	err := e.updateAccountStatusAndInvalidate(ctx, userID, AccountActive)
	e.emitAudit(ctx, auditEventAccountStatusChange, err == nil, userID, "", err, func() map[string]string {
		return map[string]string{
			"action": "enable",
		}
	})
	return err
}

func (e *Engine) LockAccount(ctx context.Context, userID string) error {
	err := e.updateAccountStatusAndInvalidate(ctx, userID, AccountLockedStatus)
	if err == nil {
		e.metricInc(MetricAccountLocked)
	}
	e.emitAudit(ctx, auditEventAccountStatusChange, err == nil, userID, "", err, func() map[string]string {
		return map[string]string{
			"action": "lock",
		}
	})
	return err
}

func (e *Engine) DeleteAccount(ctx context.Context, userID string) error {
	err := e.updateAccountStatusAndInvalidate(ctx, userID, AccountDeletedStatus)
	if err == nil {
		e.metricInc(MetricAccountDeleted)
	}
	e.emitAudit(ctx, auditEventAccountStatusChange, err == nil, userID, "", err, func() map[string]string {
		return map[string]string{
			"action": "delete",
		}
	})
	return err
}

// ChangeRole moves the account to a different role and invalidates every
// active session so stale masks cannot outlive the change.
func (e *Engine) ChangeRole(ctx context.Context, userID string, role rbac.Role) error {
	err := e.changeRoleAndInvalidate(ctx, userID, role)
	e.emitAudit(ctx, auditEventAccountRoleChange, err == nil, userID, "", err, func() map[string]string {
		return map[string]string{
			"role": string(role),
		}
	})
	return err
}

func (e *Engine) changeRoleAndInvalidate(ctx context.Context, userID string, role rbac.Role) error {
	if e.userProvider == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrUserNotFound
	}
	if e.matrix.MaskFor(role) == 0 {
		return ErrAccountRoleInvalid
	}

	current, err := e.userProvider.GetUserByID(userID)
	if err != nil {
		return ErrUserNotFound
	}
	if current.Role == role {
		return nil
	}

	updated, err := e.userProvider.UpdateRole(ctx, userID, role)
	if err != nil {
		return err
	}
	if updated.Role != role {
		return ErrUnauthorized
	}
	if updated.PermissionVersion <= current.PermissionVersion {
		return ErrAccountVersionNotAdvanced
	}

	if err := e.LogoutAll(ctx, userID); err != nil {
		return errors.Join(ErrSessionInvalidationFailed, err)
	}

	return nil
}

func (e *Engine) updateAccountStatusAndInvalidate(ctx context.Context, userID string, status AccountStatus) error {
	if e.userProvider == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrUserNotFound
	}

	current, err := e.userProvider.GetUserByID(userID)
	if err != nil {
		return ErrUserNotFound
	}

	if current.Status == status {
		return nil
	}

	updated, err := e.userProvider.UpdateAccountStatus(ctx, userID, status)
	if err != nil {
		return err
	}
	if updated.AccountVersion <= current.AccountVersion {
		return ErrAccountVersionNotAdvanced
	}
	if updated.Status != status {
		return ErrUnauthorized
	}

	if err := e.LogoutAll(ctx, userID); err != nil {
		return errors.Join(ErrSessionInvalidationFailed, err)
	}

	return nil
}

func accountStatusToError(status AccountStatus) error {
	switch status {
	case AccountActive:
		return nil
	case AccountDisabledStatus:
		return ErrAccountDisabled
	case AccountLockedStatus:
		return ErrAccountLocked
	case AccountDeletedStatus:
		return ErrAccountDeleted
	default:
		return ErrUnauthorized
	}
}

package trackd

import (
	"context"
	"errors"

	"github.com/foodontracks/trackd/prefs"
)

// GetPreferences describes the getpreferences operation and its observable behavior.
//
// GetPreferences may return an error when input validation, dependency calls, or security checks fail.
// GetPreferences does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GetPreferences(ctx context.Context, userID string) (prefs.Preferences, error) {
	if e == nil || e.prefsStore == nil {
		return prefs.Preferences{}, ErrPrefsDisabled
	}
	if userID == "" {
		return prefs.Preferences{}, ErrUserNotFound
	}

	p, err := e.prefsStore.Get(ctx, userID)
	if err != nil {
		return prefs.Preferences{}, errors.Join(ErrPrefsUnavailable, err)
	}
	e.metricInc(MetricPrefsRead)
	return p, nil
}

// PutPreferences describes the putpreferences operation and its observable behavior.
//
// PutPreferences may return an error when input validation, dependency calls, or security checks fail.
// PutPreferences does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) PutPreferences(ctx context.Context, userID string, p prefs.Preferences) (prefs.Preferences, error) {
	if e == nil || e.prefsStore == nil {
		return prefs.Preferences{}, ErrPrefsDisabled
	}
	if userID == "" {
		return prefs.Preferences{}, ErrUserNotFound
	}

	saved, err := e.prefsStore.Put(ctx, userID, p)
	if err != nil {
		return prefs.Preferences{}, e.prefsWriteError(ctx, userID, err)
	}

	e.metricInc(MetricPrefsWrite)
	e.emitAudit(ctx, auditEventPrefsUpdated, true, userID, "", nil, func() map[string]string {
		return map[string]string{
			"mode": "replace",
		}
	})
	return saved, nil
}

// PatchPreferences describes the patchpreferences operation and its observable behavior.
//
// PatchPreferences may return an error when input validation, dependency calls, or security checks fail.
// PatchPreferences does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) PatchPreferences(ctx context.Context, userID string, patch prefs.Patch) (prefs.Preferences, error) {
	if e == nil || e.prefsStore == nil {
		return prefs.Preferences{}, ErrPrefsDisabled
	}
	if userID == "" {
		return prefs.Preferences{}, ErrUserNotFound
	}

	merged, err := e.prefsStore.Patch(ctx, userID, patch)
	if err != nil {
		return prefs.Preferences{}, e.prefsWriteError(ctx, userID, err)
	}

	e.metricInc(MetricPrefsWrite)
	e.emitAudit(ctx, auditEventPrefsUpdated, true, userID, "", nil, func() map[string]string {
		return map[string]string{
			"mode": "patch",
		}
	})
	return merged, nil
}

// ResetPreferences describes the resetpreferences operation and its observable behavior.
//
// ResetPreferences may return an error when input validation, dependency calls, or security checks fail.
// ResetPreferences does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResetPreferences(ctx context.Context, userID string) error {
	if e == nil || e.prefsStore == nil {
		return ErrPrefsDisabled
	}
	if userID == "" {
		return ErrUserNotFound
	}

	if err := e.prefsStore.Delete(ctx, userID); err != nil {
		return errors.Join(ErrPrefsUnavailable, err)
	}

	e.metricInc(MetricPrefsWrite)
	e.emitAudit(ctx, auditEventPrefsCleared, true, userID, "", nil, nil)
	return nil
}

func (e *Engine) prefsWriteError(ctx context.Context, userID string, err error) error {
	if errors.Is(err, prefs.ErrInvalid) {
		e.emitAudit(ctx, auditEventPrefsUpdated, false, userID, "", ErrPrefsInvalid, nil)
		return ErrPrefsInvalid
	}
	e.emitAudit(ctx, auditEventPrefsUpdated, false, userID, "", ErrPrefsUnavailable, nil)
	return errors.Join(ErrPrefsUnavailable, err)
}

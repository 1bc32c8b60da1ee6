package trackd

import "context"

// RecordOrderCreated counts a created order and emits the matching audit
// event. The storage layer owns the order itself; the engine only tracks
// the security-relevant trail.
func (e *Engine) RecordOrderCreated(ctx context.Context, res *AuthResult, orderID string) {
	e.metricInc(MetricOrderCreated)
	e.emitAudit(ctx, auditEventOrderCreated, true, resultUserID(res), resultSessionID(res), nil, func() map[string]string {
		return map[string]string{"order_id": orderID}
	})
}

// RecordOrderUpdated counts an order status transition and emits the
// matching audit event.
func (e *Engine) RecordOrderUpdated(ctx context.Context, res *AuthResult, orderID, status string) {
	e.metricInc(MetricOrderUpdated)
	e.emitAudit(ctx, auditEventOrderUpdated, true, resultUserID(res), resultSessionID(res), nil, func() map[string]string {
		return map[string]string{
			"order_id": orderID,
			"status":   status,
		}
	})
}

// RecordTraceEvent counts a recorded traceability event and emits the
// matching audit event.
func (e *Engine) RecordTraceEvent(ctx context.Context, res *AuthResult, orderID, stage string) {
	e.metricInc(MetricTraceEventRecorded)
	e.emitAudit(ctx, auditEventTraceEventRecorded, true, resultUserID(res), resultSessionID(res), nil, func() map[string]string {
		return map[string]string{
			"order_id": orderID,
			"stage":    stage,
		}
	})
}

func resultUserID(res *AuthResult) string {
	if res == nil {
		return ""
	}
	return res.UserID
}

func resultSessionID(res *AuthResult) string {
	if res == nil {
		return ""
	}
	return res.SessionID
}

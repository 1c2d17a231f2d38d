package goAuthClient

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAuthClient/refresh"
	"github.com/MrEthical07/goAuthClient/storage"
)

const (
	auditEventSessionSet      = "session_set"
	auditEventSessionCleared  = "session_cleared"
	auditEventSessionRestored = "session_restored"
	auditEventRefreshStarted  = "refresh_started"
	auditEventRefreshSuccess  = "refresh_success"
	auditEventRefreshFailure  = "refresh_failure"
	auditEventSessionExpired  = "session_expired"
	auditEventLogout          = "logout"
	auditEventReplayFailure   = "replay_failure"
)

// AuditErrorCode is the stable error classification written to audit events.
type AuditErrorCode string

const (
	auditErrNoRefreshCredential AuditErrorCode = "no_refresh_credential"
	auditErrRenewalRejected     AuditErrorCode = "renewal_rejected"
	auditErrRenewalUnavailable  AuditErrorCode = "renewal_unavailable"
	auditErrMalformedRenewal    AuditErrorCode = "malformed_renewal"
	auditErrReplayUnauthorized  AuditErrorCode = "replay_unauthorized"
	auditErrStorageUnavailable  AuditErrorCode = "storage_unavailable"
	auditErrCanceled            AuditErrorCode = "canceled"
	auditErrTimeout             AuditErrorCode = "timeout"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	cycleID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventType: eventType,
		UserID:    userID,
		CycleID:   cycleID,
		RequestID: requestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, refresh.ErrNoRefreshCredential):
		return auditErrNoRefreshCredential
	case errors.Is(err, refresh.ErrRenewalRejected):
		return auditErrRenewalRejected
	case errors.Is(err, refresh.ErrRenewalUnavailable):
		return auditErrRenewalUnavailable
	case errors.Is(err, refresh.ErrMalformedRenewal):
		return auditErrMalformedRenewal
	case errors.Is(err, ErrReplayUnauthorized):
		return auditErrReplayUnauthorized
	case errors.Is(err, storage.ErrUnavailable):
		return auditErrStorageUnavailable
	case errors.Is(err, context.Canceled):
		return auditErrCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return auditErrTimeout
	default:
		return auditErrInternal
	}
}

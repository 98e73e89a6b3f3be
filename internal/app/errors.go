package app

import (
	"fmt"
	"net/http"

	"ipurpose/api/internal/entitlement"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(message string, details any) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, details)
}

// storageUnavailable is retryable from the caller's point of view.
func storageUnavailable() *DomainError {
	return domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Storage is unavailable, try again", nil)
}

func upgradeRequired(required entitlement.Tier) *DomainError {
	return domainError(http.StatusForbidden, "UPGRADE_REQUIRED", "Upgrade required", map[string]any{
		"requiredTier": required,
	})
}

func notFound(message string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
}

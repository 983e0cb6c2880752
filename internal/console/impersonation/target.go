// Package impersonation holds the tenant a backoffice operator is acting
// as, independent of the signed-in principal.
package impersonation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTarget reports a target without a tenant id.
var ErrInvalidTarget = errors.New("impersonation: target tenant id is required")

// Target is a display snapshot of the tenant being impersonated.
type Target struct {
	TenantID    string `json:"id"`
	DisplayName string `json:"companyName"`
}

// Validate checks the target can scope requests.
func (t Target) Validate() error {
	if strings.TrimSpace(t.TenantID) == "" {
		return ErrInvalidTarget
	}
	return nil
}

// EncodeTarget serializes t in the stored {id, companyName} form.
func EncodeTarget(t Target) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode target: %w", err)
	}
	return string(data), nil
}

// DecodeTarget parses the stored form.
func DecodeTarget(value string) (Target, error) {
	var t Target
	if err := json.Unmarshal([]byte(value), &t); err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if err := t.Validate(); err != nil {
		return Target{}, err
	}
	return t, nil
}

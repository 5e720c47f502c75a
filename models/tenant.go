package models

import (
	"fmt"
	"regexp"
)

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// ValidateTenantID rejects identifiers that cannot be used as a directory name.
func ValidateTenantID(tenantID string) error {
	if !tenantIDPattern.MatchString(tenantID) || tenantID == "." || tenantID == ".." {
		return fmt.Errorf("%w: tenant id %q is not filesystem-safe", ErrInvalidInput, tenantID)
	}
	return nil
}

package ledger

import (
	"fmt"
	"strings"
)

// Input limits.
const (
	maxStringInputLength = 256
	maxDescriptionLength = 1024
)

func validateRequiredString(input, field string, max int) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidInput, field)
	}
	if len(input) > max {
		return fmt.Errorf("%w: %s exceeds max length %d", ErrInvalidInput, field, max)
	}
	return nil
}

func validateOptionalString(input, field string, max int) error {
	if len(input) > max {
		return fmt.Errorf("%w: %s exceeds max length %d", ErrInvalidInput, field, max)
	}
	return nil
}

// validateIdentity rejects identities that cannot be used as composite key attributes.
func validateIdentity(identity, field string) error {
	if err := validateRequiredString(identity, field, maxDescriptionLength); err != nil {
		return err
	}
	if strings.ContainsRune(identity, 0) {
		return fmt.Errorf("%w: %s contains a null character", ErrInvalidInput, field)
	}
	return nil
}

package schema

import (
	"fmt"
)

type ErrValidation = error

func NewValidationError(content string) ErrValidation {
	return fmt.Errorf("invalid document: %s", content)
}

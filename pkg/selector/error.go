package selector

import (
	"fmt"
)

type ErrParse = error

func NewParseError(content string) ErrParse {
	return fmt.Errorf("invalid selector: %s", content)
}

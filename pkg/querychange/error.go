package querychange

import (
	"fmt"
)

type ErrEvaluator = error

// NewEvaluatorError wraps a fault raised by the injected evaluator. Such
// faults fail the current batch instead of degrading to MustReExecute.
func NewEvaluatorError(op string, err error) ErrEvaluator {
	return fmt.Errorf("evaluator failed during %s: %w", op, err)
}

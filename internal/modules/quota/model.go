package quota

import "errors"

// ErrQuotaExhausted is returned when a visitor has no questions remaining for the current month.
var ErrQuotaExhausted = errors.New("question quota exhausted")

// DefaultQuestions is the number of questions granted per month.
const DefaultQuestions = 100

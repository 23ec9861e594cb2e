package quota

import "context"

// Service orchestrates the monthly question allowance. Generation is the only
// metered operation; geofence ticks and state reads are free.
type Service struct {
	store *Store
}

// NewService creates a Service backed by the given Store.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// UseQuestion deducts one question from the visitor's monthly allowance.
// If the visitor row does not exist yet it is initialised and the question is
// immediately consumed. Returns ErrQuotaExhausted when the allowance for the
// current month is used up.
func (s *Service) UseQuestion(ctx context.Context, uid string) error {
	err := s.store.UseQuestion(ctx, uid)
	if err != ErrQuotaExhausted {
		return err
	}

	// Row may be missing: try to create it, then retry the deduction once.
	if initErr := s.store.EnsureVisitor(ctx, uid); initErr != nil {
		return initErr
	}
	return s.store.UseQuestion(ctx, uid)
}

package repository

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithEffectiveness sets the factor applied to committed points when
// computing the displayed points column. Values outside (0, 1] are ignored.
func WithEffectiveness(factor float64) Option {
	return func(s *SQLiteStore) {
		if factor > 0 && factor <= 1 {
			s.effectiveness = factor
		}
	}
}

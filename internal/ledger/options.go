package ledger

// MutationOption adjusts how a record mutation propagates.
type MutationOption func(*mutationConfig)

type mutationConfig struct {
	skipRefresh bool
	noCascade   bool
}

// WithoutRefresh skips the checkpoint recompute and balance refresh of the
// mutated record's account. Callers importing many records use it and run
// RefreshAccount once at the end. Debt refreshes and the accounts of transfer
// counterparts are still refreshed.
func WithoutRefresh() MutationOption {
	return func(c *mutationConfig) {
		c.skipRefresh = true
	}
}

// withoutCascade marks the delete of a transfer counterpart so that it does not
// cascade back to the record that triggered it.
func withoutCascade() MutationOption {
	return func(c *mutationConfig) {
		c.noCascade = true
	}
}

func applyMutationOptions(opts []MutationOption) mutationConfig {
	var c mutationConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

//go:build !cds_opt_enablepadding

package cds

const enablePadding = false

// counterStripe represents a striped counter to reduce contention.
type counterStripe struct {
	c uintptr // Counter value, accessed atomically
}

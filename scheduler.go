package wgan

// Critic warm-up constants from the WGAN-GP training recipe: the critic is driven
// towards optimality before the very first generator updates and again at every
// 500th generator iteration.
const (
	warmupGenIterations  = 25
	catchupPeriod        = 500
	intensiveCriticSteps = 100
)

// DiscStepsFor Returns how many discriminator updates to run before the next
// generator update, given the cumulative count of generator updates so far.
// The caller owns data exhaustion: the returned count is an upper bound and the
// inner loop stops early once the epoch runs out of batches.
func DiscStepsFor(genIterations, baseline int) int {
	if genIterations < warmupGenIterations {
		return intensiveCriticSteps
	}
	if genIterations%catchupPeriod == 0 {
		return intensiveCriticSteps
	}
	return baseline
}

//go:build race

package cds

// raceEnabled is set when built with the race detector, which slows the
// lock-heavy stress tests by an order of magnitude.
const raceEnabled = true

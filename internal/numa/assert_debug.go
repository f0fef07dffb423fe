//go:build numadebug

package numa

// debugChecks turns contract violations into panics.
const debugChecks = true

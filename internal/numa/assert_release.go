//go:build !numadebug

package numa

const debugChecks = false

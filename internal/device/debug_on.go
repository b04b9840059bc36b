//go:build mirrordebug

package device

// debugBuild selects debug-build validation behavior.
const debugBuild = true

//go:build !mirrordebug

package device

const debugBuild = false

//go:build !debug

// Package debug provides assertions and diagnostics that compile away to
// no-ops in production builds; build with `-tags debug` to enable them.
package debug

func ON() bool { return false }

func Infof(_ string, _ ...any) {}

func Func(_ func()) {}

func Assert(_ bool, _ ...any)            {}
func Assertf(_ bool, _ string, _ ...any) {}
func AssertNoErr(_ error)                {}
func AssertFunc(_ func() bool, _ ...any) {}

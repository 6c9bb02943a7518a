//go:build debug

package debug

import "fmt"

func ON() bool { return true }

func Infof(format string, args ...any) { fmt.Printf("[DEBUG] "+format+"\n", args...) }

func Func(f func()) { f() }

func Assert(cond bool, args ...any) {
	if !cond {
		panic(fmt.Sprint("assertion failed: ", fmt.Sprint(args...)))
	}
}

func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}

func AssertNoErr(err error) {
	if err != nil {
		panic("assertion failed: unexpected error: " + err.Error())
	}
}

func AssertFunc(f func() bool, args ...any) {
	Assert(f(), args...)
}

package cos

import (
	"fmt"
	"os"

	"github.com/sw1001/DeDOS/cmn/nlog"
)

// ExitLogf logs a fatal-looking message and terminates the process
// non-zero, for FatalConfig-class startup errors.
func ExitLogf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	nlog.Errorln(msg)
	nlog.Flush(true)
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

// IDGen hands out monotonically-distinct small integers, for use where the
// spec calls for "unique process-wide" or "unique per runtime" ids
// without mandating a particular id-generation scheme (MSU types, routes).
type IDGen struct {
	next uint32
}

func (g *IDGen) Next() uint32 {
	g.next++
	return g.next
}

package acquisition

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/phrame/provider"
)

var unsafeName = strings.NewReplacer("/", "_", `\`, "_", "\x00", "")

// namer hands out {unix-ms}-{provider}-{style}.png names. Timestamps are
// strictly increasing so names stay unique within a process even when two
// images land in the same millisecond.
type namer struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func (n *namer) next(p provider.Name, style string) string {
	n.mu.Lock()
	ms := n.now().UnixMilli()
	if ms <= n.last {
		ms = n.last + 1
	}
	n.last = ms
	n.mu.Unlock()

	return fmt.Sprintf("%d-%s-%s.png", ms, p, unsafeName.Replace(style))
}

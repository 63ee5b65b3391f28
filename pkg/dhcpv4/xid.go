package dhcpv4

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/u-root/uio/rand"
)

// RandomTimeout bounds how long RandomXID waits for the system entropy pool.
var RandomTimeout = 2 * time.Minute

// TransactionIDSource yields the 32-bit transaction ids used by the client
// constructors.
type TransactionIDSource interface {
	TransactionID(ctx context.Context) (uint32, error)
}

// RandomXID draws transaction ids from the operating system random source.
// Ids are not guaranteed unique across concurrent callers.
type RandomXID struct{}

func (RandomXID) TransactionID(ctx context.Context) (uint32, error) {
	ctx, cancel := context.WithTimeout(ctx, RandomTimeout)
	defer cancel()

	var b [4]byte
	n, err := rand.ReadContext(ctx, b[:])
	if err != nil {
		return 0, fmt.Errorf("reading random transaction id: %w", err)
	}
	if n != len(b) {
		return 0, errors.New("short random read for transaction id")
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// ErrXIDExhausted is returned by a FixedXID that has handed out every id.
var ErrXIDExhausted = errors.New("fixed transaction id sequence exhausted")

// FixedXID returns a scripted sequence of ids, for tests and reproducible
// captures. It is safe for concurrent use.
type FixedXID struct {
	mu  sync.Mutex
	ids []uint32
}

// NewFixedXID returns a source that yields ids in order.
func NewFixedXID(ids ...uint32) *FixedXID {
	return &FixedXID{ids: append([]uint32(nil), ids...)}
}

func (f *FixedXID) TransactionID(ctx context.Context) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ids) == 0 {
		return 0, ErrXIDExhausted
	}
	id := f.ids[0]
	f.ids = f.ids[1:]
	return id, nil
}

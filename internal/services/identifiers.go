// internal/services/identifiers.go
package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/utils"
)

const (
	orderPrefix   = "ORD"
	requestPrefix = "REQ"
	batchPrefix   = "BATCH"
)

// IdentifierGenerator issues human-readable identifiers of the form
// PREFIX-<unix millis>-<base36 suffix>. Within one process it never repeats an
// identifier inside the same millisecond; across processes the unique index on
// each identifier column catches collisions and the write is retried.
type IdentifierGenerator struct {
	mu        sync.Mutex
	now       func() time.Time
	lastMilli int64
	issued    map[string]struct{}
}

func NewIdentifierGenerator(now func() time.Time) *IdentifierGenerator {
	if now == nil {
		now = time.Now
	}
	return &IdentifierGenerator{now: now, issued: make(map[string]struct{})}
}

func (g *IdentifierGenerator) OrderNumber() (string, error) {
	return g.next(orderPrefix, 6)
}

func (g *IdentifierGenerator) RequestNumber() (string, error) {
	return g.next(requestPrefix, 6)
}

func (g *IdentifierGenerator) BatchID() (string, error) {
	return g.next(batchPrefix, 9)
}

func (g *IdentifierGenerator) next(prefix string, suffixLen int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms != g.lastMilli {
		g.lastMilli = ms
		clear(g.issued)
	}

	for {
		suffix, err := utils.RandomString(suffixLen, utils.Base36Charset)
		if err != nil {
			return "", fmt.Errorf("failed to generate %s identifier: %w", prefix, err)
		}

		id := fmt.Sprintf("%s-%d-%s", prefix, ms, suffix)
		if _, taken := g.issued[id]; !taken {
			g.issued[id] = struct{}{}
			return id, nil
		}
	}
}

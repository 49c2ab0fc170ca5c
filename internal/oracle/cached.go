package oracle

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/gnolang/misra/internal"
	"github.com/gnolang/misra/internal/cast"
)

const (
	DefaultCacheSize = 256
	cacheTTL         = 10 * time.Minute
)

// Cached remembers verdicts of another oracle by unit content. Sandbox
// names are ignored, so the same edit tried twice is built once.
type Cached struct {
	next   internal.Oracle
	cache  *lru.LRU[string, error]
	logger *zap.Logger
}

func NewCached(next internal.Oracle, size int, logger *zap.Logger) *Cached {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{
		next:   next,
		cache:  lru.NewLRU[string, error](size, nil, cacheTTL),
		logger: logger,
	}
}

func (c *Cached) Rebuild(ctx context.Context, t *cast.Tree, unit cast.NodeID) error {
	key := contentKey(files(t, unit))
	if err, ok := c.cache.Get(key); ok {
		c.logger.Debug("rebuild verdict from cache", zap.String("key", key), zap.Bool("ok", err == nil))
		return err
	}
	err := c.next.Rebuild(ctx, t, unit)
	if ctx.Err() != nil {
		// cancellation says nothing about the unit
		return err
	}
	c.cache.Add(key, err)
	return err
}

// Len reports the number of cached verdicts.
func (c *Cached) Len() int { return c.cache.Len() }

func contentKey(fs []unitFile) string {
	sort.Slice(fs, func(i, j int) bool { return fs[i].base < fs[j].base })
	h := md5.New()
	for _, f := range fs {
		io.WriteString(h, f.base)
		h.Write([]byte{0})
		io.WriteString(h, f.source)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

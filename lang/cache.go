package lang

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"
)

// stmtCache stores parsed statements keyed by source hash, line number and
// nesting limit. Cached nodes are never mutated, so they may be shared by any
// number of concurrent evaluations.
var stmtCache sync.Map

// cacheLen counts entries stored since the last clear.
var cacheLen atomic.Int64

// MaxCacheEntries bounds the parse cache. Storing past it clears the cache,
// so a long interactive session cannot grow it without limit.
const MaxCacheEntries = 1 << 14

// entry tracks the parse of one statement line.
type entry struct {
	once  sync.Once
	stmt  Stmt
	blank bool
	err   error
}

// cacheKey identifies a statement by the hash of its text, its line number,
// which is part of every position recorded in the tree, and the nesting limit
// it was parsed under.
func cacheKey(line string, n, maxDepth int) string {
	return strconv.FormatUint(xxh3.HashString(line), 36) +
		":" + strconv.Itoa(n) + ":" + strconv.Itoa(maxDepth)
}

// parseCached parses lines through the statement cache. With single set, the
// one line is a statement even when blank, as for [ParseString].
func parseCached(
	ctx context.Context,
	lines []string,
	single bool,
	cfg config,
) (*Block, error) {
	b := &Block{Stmts: make([]Stmt, 0, len(lines))}
	hits := 0

	for i, line := range lines {
		key := cacheKey(line, i+1, cfg.maxDepth)
		if single {
			key += ":s"
		}

		val, hit := stmtCache.LoadOrStore(key, new(entry))
		if hit {
			hits++
		} else if cacheLen.Add(1) > MaxCacheEntries {
			ClearCache()
		}

		e, ok := val.(*entry)
		if !ok {
			return nil, ErrParse.With(slog.String("issue", "invalid cache entry"))
		}

		e.once.Do(func() {
			if !single && isBlank(line) {
				e.blank = true

				return
			}

			e.stmt, e.err = parseStatement(line, i+1, cfg.maxDepth)
		})

		if e.err != nil {
			return nil, e.err
		}

		if !e.blank {
			b.Stmts = append(b.Stmts, e.stmt)
		}
	}

	cfg.logger.TraceContext(ctx, "cache lookup",
		slog.Int("line_count", len(lines)),
		slog.Int("cache_hits", hits))

	return b, nil
}

// ClearCache removes all cached statements.
func ClearCache() {
	stmtCache.Clear()
	cacheLen.Store(0)
}

// CacheLen returns the number of statements stored since the cache was last
// cleared.
func CacheLen() int { return int(cacheLen.Load()) }

// ParseReader reads a script from r and parses it as a block, one statement
// per line.
func ParseReader(ctx context.Context, r io.Reader, opts ...Option) (*Block, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return nil, err
	}

	cfg := makeConfig(opts...)

	cfg.logger.TraceContext(ctx, "read input",
		slog.Int("line_count", len(lines)),
		slog.Bool("read_ahead", true))

	if cfg.cache {
		return parseCached(ctx, lines, false, cfg)
	}

	return parseBlock(ctx, lines, cfg)
}

// ReadLines reads all lines of r through an asynchronous read-ahead buffer.
func ReadLines(r io.Reader) ([]string, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	var lines []string

	sc := bufio.NewScanner(ra)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}

	if err := sc.Err(); err != nil {
		return nil, ErrReadInput.Wrap(err).
			With(slog.String("source", "reader"))
	}

	return lines, nil
}

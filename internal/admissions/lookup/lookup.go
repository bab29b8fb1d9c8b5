// Package lookup answers university-name searches for the qualification
// blocks. Results are memoised per query and country for the life of a
// Lookup, and typing is debounced so only the settled query reaches the
// directory.
package lookup

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	apperrors "admissions-portal/internal/common/errors"
	"admissions-portal/internal/common/logger"
	"admissions-portal/internal/common/metrics"
)

const (
	DefaultMinQuery = 3
	DefaultDebounce = 300 * time.Millisecond
)

type University struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Directory is the remote source of university names.
type Directory interface {
	Search(ctx context.Context, query, country string) ([]University, error)
}

type Config struct {
	MinQuery   int
	Debounce   time.Duration
	MaxResults int           // 0 keeps everything the directory returns
	Timeout    time.Duration // per debounced search
}

// ResultFunc receives the outcome of a debounced search.
type ResultFunc func(results []University, err error)

type Lookup struct {
	dir Directory
	cfg Config
	log logger.Logger

	mu    sync.Mutex
	cache map[string][]University
	timer *time.Timer
	seq   uint64
}

func New(dir Directory, cfg Config, log logger.Logger) *Lookup {
	if cfg.MinQuery <= 0 {
		cfg.MinQuery = DefaultMinQuery
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Lookup{
		dir:   dir,
		cfg:   cfg,
		log:   log.WithFields(map[string]interface{}{"component": "university_lookup"}),
		cache: make(map[string][]University),
	}
}

func cacheKey(query, country string) string {
	return query + "|" + country
}

// Search returns candidates for query in country. Queries shorter than the
// minimum length return nothing without touching the directory. Failed
// lookups are not memoised.
func (l *Lookup) Search(ctx context.Context, query, country string) ([]University, error) {
	query = strings.TrimSpace(query)
	country = strings.TrimSpace(country)
	if utf8.RuneCountInString(query) < l.cfg.MinQuery {
		return nil, nil
	}

	key := cacheKey(query, country)
	l.mu.Lock()
	cached, ok := l.cache[key]
	l.mu.Unlock()
	if ok {
		metrics.UniversityLookups.WithLabelValues("cache").Inc()
		return cached, nil
	}

	results, err := l.dir.Search(ctx, query, country)
	if err != nil {
		metrics.UniversityLookups.WithLabelValues("error").Inc()
		l.log.Warn("university lookup failed", map[string]interface{}{
			"query":   query,
			"country": country,
			"error":   err,
		})
		return nil, apperrors.NewUniversityLookupFailedError(query, err)
	}
	if l.cfg.MaxResults > 0 && len(results) > l.cfg.MaxResults {
		results = results[:l.cfg.MaxResults]
	}
	metrics.UniversityLookups.WithLabelValues("directory").Inc()

	l.mu.Lock()
	l.cache[key] = results
	l.mu.Unlock()
	return results, nil
}

// Type records a keystroke. After the debounce window passes without a
// newer keystroke, the query is searched and fn is called. Superseded
// searches never call fn.
func (l *Lookup) Type(query, country string, fn ResultFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	seq := l.seq
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.cfg.Debounce, func() {
		l.fire(seq, query, country, fn)
	})
}

func (l *Lookup) fire(seq uint64, query, country string, fn ResultFunc) {
	if !l.current(seq) {
		return
	}
	ctx := context.Background()
	if l.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.Timeout)
		defer cancel()
	}
	results, err := l.Search(ctx, query, country)
	if !l.current(seq) {
		return
	}
	if fn != nil {
		fn(results, err)
	}
}

func (l *Lookup) current(seq uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq == seq
}

// Cached reports how many query|country pairs are memoised.
func (l *Lookup) Cached() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}

// Stop cancels a pending debounced search.
func (l *Lookup) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

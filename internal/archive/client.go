// Package archive is the facade over the upstream archive service: URL
// schema, archive discovery, and per-chain CSV extraction built on the
// random-access ZIP reader.
package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kosarica/price-archive/internal/dates"
	"github.com/kosarica/price-archive/internal/httpx"
	"github.com/kosarica/price-archive/internal/zipr"
)

// Member file names inside each chain folder.
const (
	FileStores   = "stores.csv"
	FileProducts = "products.csv"
	FilePrices   = "prices.csv"
)

const listCacheTTL = time.Hour

// ErrNoArchives means the upstream has no archives listed at all.
var ErrNoArchives = errors.New("archive: upstream has no archives")

// Info describes one published archive.
type Info struct {
	Date    string `json:"date"`
	URL     string `json:"url"`
	Size    int64  `json:"size"`
	Updated string `json:"updated"`
}

type listResponse struct {
	Archives []Info `json:"archives"`
}

// Client talks to the upstream archive service.
type Client struct {
	base string
	http *httpx.Client
	log  zerolog.Logger

	dirs *zipr.DirCache

	// sizes memoizes archive lengths by URL, seeded from the list and
	// probed with HEAD only when absent. A list refresh that reports a new
	// length supersedes the memo, and the directory cache drops its stale
	// entry on the size mismatch.
	sizeMu sync.Mutex
	sizes  map[string]int64

	listMu sync.Mutex
	list   []Info
	listAt time.Time
}

// New creates a client for the upstream at base (no trailing slash needed).
func New(base string, hc *httpx.Client, logger zerolog.Logger) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: hc,
		log:   logger,
		dirs:  zipr.NewDirCache(),
		sizes: make(map[string]int64),
	}
}

// URL returns the archive URL for a date.
func (c *Client) URL(date string) string {
	return fmt.Sprintf("%s/v0/archive/%s.zip", c.base, date)
}

// List returns the published archives sorted descending by date. Results
// are cached for an hour.
func (c *Client) List(ctx context.Context) ([]Info, error) {
	c.listMu.Lock()
	defer c.listMu.Unlock()

	if c.list != nil && time.Since(c.listAt) < listCacheTTL {
		return c.list, nil
	}

	var resp listResponse
	if err := c.http.GetJSON(ctx, c.base+"/v0/list", &resp); err != nil {
		return nil, fmt.Errorf("archive list: %w", err)
	}
	archives := resp.Archives
	sort.Slice(archives, func(i, j int) bool {
		return dates.Compare(archives[i].Date, archives[j].Date) > 0
	})

	c.sizeMu.Lock()
	for _, a := range archives {
		if a.Size > 0 {
			c.sizes[c.URL(a.Date)] = a.Size
		}
	}
	c.sizeMu.Unlock()

	c.list = archives
	c.listAt = time.Now()
	return archives, nil
}

// ResolveDate maps a requested date to a date the upstream actually has:
// the date itself when listed, otherwise the most recent published date.
func (c *Client) ResolveDate(ctx context.Context, date string) (string, error) {
	archives, err := c.List(ctx)
	if err != nil {
		return "", err
	}
	if len(archives) == 0 {
		return "", ErrNoArchives
	}
	for _, a := range archives {
		if a.Date == date {
			return date, nil
		}
	}
	c.log.Debug().Str("requested", date).Str("resolved", archives[0].Date).Msg("date not listed, using latest")
	return archives[0].Date, nil
}

// archiveSize returns the archive length for url. At most one HEAD probe
// is issued per URL; later reads reuse the memoized length.
func (c *Client) archiveSize(ctx context.Context, url string) (int64, error) {
	c.sizeMu.Lock()
	size, ok := c.sizes[url]
	c.sizeMu.Unlock()
	if ok {
		return size, nil
	}

	size, err := c.http.Head(ctx, url)
	if err != nil {
		return 0, err
	}
	c.sizeMu.Lock()
	c.sizes[url] = size
	c.sizeMu.Unlock()
	return size, nil
}

// reader returns a ZIP reader plus the parsed central directory for date,
// resolving the archive size and consulting the per-URL directory cache.
func (c *Client) reader(ctx context.Context, date string) (*zipr.Reader, []zipr.Entry, error) {
	url := c.URL(date)
	size, err := c.archiveSize(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("archive probe %s: %w", date, err)
	}

	r := zipr.NewReader(c.http, url, size)
	if entries, ok := c.dirs.Get(url, size); ok {
		return r, entries, nil
	}

	entries, err := r.Directory(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("archive directory %s: %w", date, err)
	}
	c.dirs.Put(url, size, entries)
	return r, entries, nil
}

// Chains returns the chain codes present in the archive for date: the
// top-level directories containing at least one sub-path.
func (c *Client) Chains(ctx context.Context, date string) ([]string, error) {
	_, entries, err := c.reader(ctx, date)
	if err != nil {
		return nil, err
	}
	return zipr.TopLevelDirs(entries), nil
}

// ReadCSV extracts one member file for a chain. A missing member yields
// empty text; some chains lack one or more files on some days.
func (c *Client) ReadCSV(ctx context.Context, date, chain, file string) (string, error) {
	r, entries, err := c.reader(ctx, date)
	if err != nil {
		return "", err
	}
	text, err := r.ReadMember(ctx, entries, chain+"/"+file)
	if errors.Is(err, zipr.ErrMemberNotFound) {
		return "", nil
	}
	return text, err
}

package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/price-archive/internal/httpx"
)

// upstream is a mock archive service: a list endpoint plus ranged ZIP
// downloads, counting requests per kind.
type upstream struct {
	server   *httptest.Server
	archives map[string][]byte // date -> zip bytes

	listCalls  atomic.Int64
	headCalls  atomic.Int64
	rangeCalls atomic.Int64
}

func newUpstream(t *testing.T, archives map[string][]byte) *upstream {
	t.Helper()

	u := &upstream{archives: archives}
	mux := http.NewServeMux()
	mux.HandleFunc("/v0/list", func(w http.ResponseWriter, r *http.Request) {
		u.listCalls.Add(1)
		infos := []Info{}
		for date, data := range archives {
			infos = append(infos, Info{
				Date: date,
				URL:  u.server.URL + "/v0/archive/" + date + ".zip",
				Size: int64(len(data)),
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"archives": infos})
	})
	mux.HandleFunc("/v0/archive/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/v0/archive/")
		date := strings.TrimSuffix(name, ".zip")
		data, ok := archives[date]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodHead {
			u.headCalls.Add(1)
		} else {
			u.rangeCalls.Add(1)
		}
		http.ServeContent(w, r, name, time.Now(), bytes.NewReader(data))
	})
	u.server = httptest.NewServer(mux)
	t.Cleanup(u.server.Close)
	return u
}

func buildArchive(t *testing.T, members map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range members {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newTestClient(base string) *Client {
	cfg := httpx.DefaultConfig()
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 1000
	return New(base, httpx.NewClient(cfg), zerolog.Nop())
}

func TestListSortedAndCached(t *testing.T) {
	u := newUpstream(t, map[string][]byte{
		"2026-01-17": buildArchive(t, map[string]string{"konzum/prices.csv": "a\n1\n"}),
		"2026-01-19": buildArchive(t, map[string]string{"konzum/prices.csv": "a\n1\n"}),
		"2026-01-18": buildArchive(t, map[string]string{"konzum/prices.csv": "a\n1\n"}),
	})
	c := newTestClient(u.server.URL)

	archives, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, archives, 3)
	assert.Equal(t, "2026-01-19", archives[0].Date)
	assert.Equal(t, "2026-01-18", archives[1].Date)
	assert.Equal(t, "2026-01-17", archives[2].Date)

	// Second call comes from the cache
	_, err = c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.listCalls.Load())
}

func TestResolveDate(t *testing.T) {
	u := newUpstream(t, map[string][]byte{
		"2026-01-18": buildArchive(t, map[string]string{"konzum/prices.csv": "a\n1\n"}),
		"2026-01-19": buildArchive(t, map[string]string{"konzum/prices.csv": "a\n1\n"}),
	})
	c := newTestClient(u.server.URL)

	got, err := c.ResolveDate(context.Background(), "2026-01-18")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-18", got)

	// Unlisted date falls back to the most recent one
	got, err = c.ResolveDate(context.Background(), "2026-02-01")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-19", got)
}

func TestResolveDateNoArchives(t *testing.T) {
	u := newUpstream(t, map[string][]byte{})
	c := newTestClient(u.server.URL)

	_, err := c.ResolveDate(context.Background(), "2026-01-19")
	assert.ErrorIs(t, err, ErrNoArchives)
}

func TestChainsAndReadCSV(t *testing.T) {
	u := newUpstream(t, map[string][]byte{
		"2026-01-19": buildArchive(t, map[string]string{
			"konzum/stores.csv":   "store_id,city\n001,Zagreb\n",
			"konzum/products.csv": "product_id,name\np1,Kruh\n",
			"konzum/prices.csv":   "store_id,product_id,price\n001,p1,1.99\n",
			"lidl/prices.csv":     "store_id,product_id,price\n002,p2,1.89\n",
		}),
	})
	c := newTestClient(u.server.URL)
	ctx := context.Background()

	chains, err := c.Chains(ctx, "2026-01-19")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"konzum", "lidl"}, chains)

	text, err := c.ReadCSV(ctx, "2026-01-19", "konzum", FilePrices)
	require.NoError(t, err)
	assert.Equal(t, "store_id,product_id,price\n001,p1,1.99\n", text)
}

func TestReadCSVMissingMember(t *testing.T) {
	u := newUpstream(t, map[string][]byte{
		"2026-01-19": buildArchive(t, map[string]string{
			"lidl/prices.csv": "store_id,product_id,price\n002,p2,1.89\n",
		}),
	})
	c := newTestClient(u.server.URL)

	// Some chains lack individual files; that is empty text, not an error
	text, err := c.ReadCSV(context.Background(), "2026-01-19", "lidl", FileStores)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestDirectoryCachedAcrossReads(t *testing.T) {
	u := newUpstream(t, map[string][]byte{
		"2026-01-19": buildArchive(t, map[string]string{
			"konzum/stores.csv": "store_id,city\n001,Zagreb\n",
			"konzum/prices.csv": "store_id,product_id,price\n001,p1,1.99\n",
		}),
	})
	c := newTestClient(u.server.URL)
	ctx := context.Background()

	_, err := c.ReadCSV(ctx, "2026-01-19", "konzum", FileStores)
	require.NoError(t, err)
	after := u.rangeCalls.Load()

	_, err = c.ReadCSV(ctx, "2026-01-19", "konzum", FilePrices)
	require.NoError(t, err)

	// The second read resolves the member from the cached directory: two
	// range requests (local header + payload), no directory re-fetch and
	// no second size probe.
	assert.Equal(t, after+2, u.rangeCalls.Load())
	assert.Equal(t, int64(1), u.headCalls.Load())
}

func TestSizeProbedOncePerArchive(t *testing.T) {
	u := newUpstream(t, map[string][]byte{
		"2026-01-19": buildArchive(t, map[string]string{
			"konzum/stores.csv":   "store_id,city\n001,Zagreb\n",
			"konzum/products.csv": "product_id,name\np1,Kruh\n",
			"konzum/prices.csv":   "store_id,product_id,price\n001,p1,1.99\n",
		}),
	})
	c := newTestClient(u.server.URL)
	ctx := context.Background()

	_, err := c.Chains(ctx, "2026-01-19")
	require.NoError(t, err)
	_, err = c.ReadCSV(ctx, "2026-01-19", "konzum", FileStores)
	require.NoError(t, err)
	_, err = c.ReadCSV(ctx, "2026-01-19", "konzum", FilePrices)
	require.NoError(t, err)

	assert.Equal(t, int64(1), u.headCalls.Load())
}

func TestListSeedsArchiveSizes(t *testing.T) {
	u := newUpstream(t, map[string][]byte{
		"2026-01-19": buildArchive(t, map[string]string{
			"konzum/prices.csv": "store_id,product_id,price\n001,p1,1.99\n",
		}),
	})
	c := newTestClient(u.server.URL)
	ctx := context.Background()

	_, err := c.List(ctx)
	require.NoError(t, err)

	// The list already reports each archive's size, so reads after a list
	// need no HEAD probe at all.
	_, err = c.Chains(ctx, "2026-01-19")
	require.NoError(t, err)
	_, err = c.ReadCSV(ctx, "2026-01-19", "konzum", FilePrices)
	require.NoError(t, err)

	assert.Equal(t, int64(0), u.headCalls.Load())
}

func TestURL(t *testing.T) {
	c := newTestClient("https://api.example.com/")
	assert.Equal(t, "https://api.example.com/v0/archive/2026-01-19.zip", c.URL("2026-01-19"))
}

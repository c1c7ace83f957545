package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resultsync/internal/eventbus"
	"resultsync/internal/query"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFromPathBuildsQuery(t *testing.T) {
	t.Parallel()
	path := writeFile(t, `
version = 1

[store]
kind = "http"
url = "http://localhost:8080"

[query]
entity_type = "ticket"
sort = ["-priority", "title"]
local_sort = ["-pinned"]

[[query.where]]
field = "state"
op = "eq"
value = "open"

[[query.where]]
field = "priority"
op = "ge"
value = 2

[cache]
fetch_ttl = "30s"
stale_after = "1h"
`)

	cfg, err := NewConfigService().LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, StoreHTTP, cfg.Store.Kind)
	assert.Equal(t, 512, cfg.Cache.LRUSize, "unset values keep their defaults")

	ttl, err := cfg.FetchTTL()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, ttl)
	stale, err := cfg.StaleAfter()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, stale)

	spec, err := cfg.QuerySpec()
	require.NoError(t, err)
	assert.Equal(t, "ticket", spec.EntityType())
	assert.Equal(t, query.Order{query.Desc("priority"), query.Asc("title")}, spec.SortKeys())
	assert.Equal(t, query.Order{query.Desc("pinned"), query.Desc("priority"), query.Asc("title")}, spec.EffectiveOrder())
	require.Len(t, spec.Predicate().All, 2)
	assert.Equal(t, query.OpGe, spec.Predicate().All[1].Op)
}

func TestLoadFromPathKeepsDefaultQuery(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "[store]\nkind = \"memory\"\nlatency_ms = 0\n")

	cfg, err := NewConfigService().LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Query, cfg.Query)
	assert.Equal(t, time.Duration(0), cfg.Latency())
}

func TestLoadFromPathRejectsBadFiles(t *testing.T) {
	t.Parallel()
	svc := NewConfigService()

	_, err := svc.LoadFromPath(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)

	_, err = svc.LoadFromPath(writeFile(t, "[store]\nkind = \"memory\"\ncolour = \"blue\"\n"))
	require.Error(t, err, "unknown keys are rejected")

	_, err = svc.LoadFromPath(writeFile(t, "[store]\nkind = \"carrier-pigeon\"\n"))
	require.ErrorIs(t, err, query.ErrConfiguration)

	_, err = svc.LoadFromPath(writeFile(t, "[store]\nkind = \"http\"\n"))
	require.ErrorIs(t, err, query.ErrConfiguration, "http store needs a url")

	_, err = svc.LoadFromPath(writeFile(t, "[query]\nentity_type = \"bug\"\nsort = []\n"))
	require.ErrorIs(t, err, query.ErrConfiguration, "a query needs a sort key")

	_, err = svc.LoadFromPath(writeFile(t, "[cache]\nfetch_ttl = \"soon\"\n"))
	require.ErrorIs(t, err, query.ErrConfiguration)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	svc := NewConfigService()

	want := DefaultConfig()
	want.UI.BracketLocal = true
	want.Query.LocalSortKeys = []string{"-pinned"}
	require.NoError(t, svc.SaveToPath(want, path))

	got, err := svc.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	t.Cleanup(bus.Close)

	loaded := make(chan eventbus.ConfigLoadedEvent, 1)
	bus.Subscribe(eventbus.EventConfigLoaded, func(e eventbus.DomainEvent) {
		loaded <- e.(eventbus.ConfigLoadedEvent)
	})

	svc := &configService{bus: bus, filePath: filepath.Join(t.TempDir(), "config.toml")}
	cfg, err := svc.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	select {
	case ev := <-loaded:
		assert.True(t, ev.Defaults)
	case <-time.After(time.Second):
		t.Fatal("no ConfigLoaded event")
	}

	require.NoError(t, svc.Save(cfg))
	_, err = os.Stat(svc.filePath)
	require.NoError(t, err)
}

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()
	require.NoError(t, DefaultConfig().Validate())
}

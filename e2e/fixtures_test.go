//go:build e2e && unix

package main

// fastConfig runs the seeded memory store without latency and keeps the cache
// snapshot inside the workspace
const fastConfig = `
version = 1

[store]
kind = "memory"
latency_ms = 0

[query]
entity_type = "bug"
sort = ["-priority", "title"]

[[query.where]]
field = "open"
op = "eq"
value = true

[cache]
file = "cache.json"
lru_size = 64
fetch_ttl = "1m"

[ui]
autosave_on_exit = true
`

// brokenStoreConfig points at an address nothing listens on
const brokenStoreConfig = `
version = 1

[store]
kind = "http"
url = "http://127.0.0.1:1"

[query]
entity_type = "bug"
sort = ["-priority"]

[cache]
file = "cache.json"
`

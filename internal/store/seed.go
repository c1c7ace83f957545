package store

import (
	"fmt"
	"math/rand"
	"time"

	"resultsync/internal/domain"
)

var (
	seedSubjects = []string{"login", "search", "export", "sync", "settings", "upload", "report", "checkout"}
	seedProblems = []string{"crashes", "hangs", "is slow", "loses data", "shows wrong totals", "ignores filters"}
	seedParts    = []string{"api", "web", "mobile", "worker"}
)

// SeedBugs generates n bug entities for the simulated remote. The same seed
// always yields the same data.
func SeedBugs(n int, seed int64, now time.Time) []domain.Entity {
	rng := rand.New(rand.NewSource(seed))
	out := make([]domain.Entity, n)
	for i := range out {
		subject := seedSubjects[rng.Intn(len(seedSubjects))]
		problem := seedProblems[rng.Intn(len(seedProblems))]
		out[i] = domain.Entity{
			ID: domain.EntityID{Type: "bug", ID: uint64(i + 1)},
			Fields: map[string]any{
				"title":     fmt.Sprintf("%s %s", subject, problem),
				"priority":  int64(1 + rng.Intn(5)),
				"open":      rng.Intn(5) != 0,
				"component": seedParts[rng.Intn(len(seedParts))],
				"updated":   now.Add(-time.Duration(rng.Intn(30*24)) * time.Hour).UTC(),
			},
		}
	}
	return out
}

package collector

import (
	"context"
	"fmt"
	"log"

	"github.com/klimeurt/repo-harvester/internal/config"
)

// WordSource supplies unique keywords for search rounds.
type WordSource interface {
	Next(ctx context.Context) (string, error)
}

// SearchClient finds suitable repository identifiers for a keyword.
type SearchClient interface {
	Search(ctx context.Context, keyword string, limit int) ([]string, error)
}

// Publisher announces accepted repositories to downstream consumers.
type Publisher interface {
	PublishAccepted(fullName, keyword string, round int) error
}

// Orchestrator drives the collection loop: one keyword per round, one
// search per keyword, until the target repository count is reached.
type Orchestrator struct {
	target   int
	perWord  int
	words    WordSource
	searcher SearchClient
	pub      Publisher
}

// NewOrchestrator creates a new Orchestrator instance
func NewOrchestrator(cfg *config.Config, words WordSource, searcher SearchClient, pub Publisher) *Orchestrator {
	return &Orchestrator{
		target:   cfg.TargetRepoCount,
		perWord:  cfg.ReposPerWord,
		words:    words,
		searcher: searcher,
		pub:      pub,
	}
}

// Collect gathers repository identifiers until the target count is reached.
// Each round uses a fresh random keyword so the sample stays diverse
// instead of draining one query's result set; the per-word cap bounds how
// much a single keyword can contribute. A failed search forfeits its round
// and the loop moves on to the next keyword; a failed word source ends the
// run. Identifiers already accepted in an earlier round are skipped, so the
// returned slice holds exactly target distinct repositories.
func (o *Orchestrator) Collect(ctx context.Context) ([]string, error) {
	log.Printf("Collecting %d repositories (%d per keyword)", o.target, o.perWord)

	accepted := make([]string, 0, o.target)
	seen := make(map[string]bool, o.target)
	rounds := 0

	for len(accepted) < o.target {
		if err := ctx.Err(); err != nil {
			return accepted, err
		}
		rounds++

		word, err := o.words.Next(ctx)
		if err != nil {
			return accepted, fmt.Errorf("cannot continue without a keyword: %w", err)
		}

		remaining := o.target - len(accepted)
		limit := o.perWord
		if remaining < limit {
			limit = remaining
		}

		found, err := o.searcher.Search(ctx, word, limit)
		if err != nil {
			if ctx.Err() != nil {
				return accepted, err
			}
			log.Printf("Search round %d failed: %v", rounds, err)
			continue
		}

		added := 0
		for _, fullName := range found {
			if seen[fullName] {
				continue
			}
			seen[fullName] = true
			accepted = append(accepted, fullName)
			added++

			if o.pub != nil {
				if err := o.pub.PublishAccepted(fullName, word, rounds); err != nil {
					log.Printf("Failed to publish repository %s: %v", fullName, err)
					// Continue processing other repositories
				}
			}
		}

		if added > 0 {
			log.Printf("Have %d/%d repositories thanks to the word %q", len(accepted), o.target, word)
		}
	}

	log.Printf("Took %d words to find all %d repositories", rounds, o.target)
	return accepted, nil
}

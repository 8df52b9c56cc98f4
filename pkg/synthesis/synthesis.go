// Package synthesis merges N scored text sources into one synthesized answer
// and flags disagreement between them. Pairwise comparison is O(N^2) over
// word sets, which is fine for the low-dozens source counts this is built for.
package synthesis

import (
	"fmt"
	"sort"
	"strings"
)

// Source is one text input with independent scoring dimensions, all in [0,1].
type Source struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Quality    float64 `json:"quality"`
	Relevance  float64 `json:"relevance"`
	Authority  float64 `json:"authority"`
}

// ConflictKind classifies a detected disagreement.
type ConflictKind string

const (
	KindContradiction ConflictKind = "contradiction"  // pairwise similarity < 0.3
	KindInconsistency ConflictKind = "inconsistency"  // pairwise similarity in [0.3, 0.6)
	KindUncertainty   ConflictKind = "uncertainty"    // single source, confidence < 0.5
)

// Similarity thresholds for conflict classification.
const (
	contradictionBelow = 0.3
	inconsistencyBelow = 0.6
	uncertaintyBelow   = 0.5
)

// Conflict records one detected disagreement. Resolution is a description of
// the strategy that would apply; no re-weighting is performed from it.
type Conflict struct {
	Kind       ConflictKind `json:"kind"`
	SourceA    string       `json:"source_a"`
	SourceB    string       `json:"source_b,omitempty"`
	Similarity float64      `json:"similarity,omitempty"`
	Resolution string       `json:"resolution"`
}

// Strategy names a source-weighting scheme.
type Strategy string

const (
	StrategyWeightedAverage Strategy = "weighted_average"
	StrategyAuthorityBased  Strategy = "authority_based"
	StrategyConsensusBased  Strategy = "consensus_based"
)

// Options configures a synthesis call.
type Options struct {
	Strategy Strategy
	MaxChars int // target length of the synthesized text
}

// Result is the outcome of one synthesis call.
type Result struct {
	Text      string             `json:"text"`
	Weights   map[string]float64 `json:"weights"`
	Conflicts []Conflict         `json:"conflicts,omitempty"`
	Used      []string           `json:"used"` // source ids in weight order
	Excluded  []string           `json:"excluded,omitempty"`
}

// Minimum score, on the strategy's primary dimension, for a source to enter
// the weighting at all.
const qualityFloor = 0.3

// Synthesize merges the sources under the given options. It fails explicitly
// when no source survives the strategy's quality filter rather than returning
// an empty synthesis.
func Synthesize(sources []Source, opts Options) (*Result, error) {
	if opts.Strategy == "" {
		opts.Strategy = StrategyWeightedAverage
	}
	if opts.MaxChars == 0 {
		opts.MaxChars = 2000
	}

	conflicts := DetectConflicts(sources)

	kept, excluded := filterByStrategy(sources, opts.Strategy)
	if len(kept) == 0 {
		return nil, fmt.Errorf("no sources meet the %s quality threshold (%d excluded)", opts.Strategy, len(excluded))
	}

	weights := weigh(kept, opts.Strategy)

	ordered := make([]Source, len(kept))
	copy(ordered, kept)
	sort.SliceStable(ordered, func(i, j int) bool {
		if weights[ordered[i].ID] != weights[ordered[j].ID] {
			return weights[ordered[i].ID] > weights[ordered[j].ID]
		}
		return ordered[i].ID < ordered[j].ID
	})

	used := make([]string, len(ordered))
	for i, s := range ordered {
		used[i] = s.ID
	}

	return &Result{
		Text:      assemble(ordered, opts.MaxChars),
		Weights:   weights,
		Conflicts: conflicts,
		Used:      used,
		Excluded:  excluded,
	}, nil
}

// DetectConflicts runs pairwise Jaccard comparison between all sources and
// flags low-confidence sources independently.
func DetectConflicts(sources []Source) []Conflict {
	var conflicts []Conflict

	for i := 0; i < len(sources); i++ {
		for j := i + 1; j < len(sources); j++ {
			sim := Jaccard(sources[i].Text, sources[j].Text)
			switch {
			case sim < contradictionBelow:
				conflicts = append(conflicts, Conflict{
					Kind:       KindContradiction,
					SourceA:    sources[i].ID,
					SourceB:    sources[j].ID,
					Similarity: sim,
					Resolution: "Use weighted average with confidence-based selection",
				})
			case sim < inconsistencyBelow:
				conflicts = append(conflicts, Conflict{
					Kind:       KindInconsistency,
					SourceA:    sources[i].ID,
					SourceB:    sources[j].ID,
					Similarity: sim,
					Resolution: "Prefer the higher-authority source",
				})
			}
		}
	}

	for _, s := range sources {
		if s.Confidence < uncertaintyBelow {
			conflicts = append(conflicts, Conflict{
				Kind:       KindUncertainty,
				SourceA:    s.ID,
				Resolution: "Request additional verification before relying on this source",
			})
		}
	}

	return conflicts
}

// Jaccard computes word-set similarity between two texts over lower-cased,
// whitespace-separated tokens.
func Jaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = true
	}
	return set
}

// filterByStrategy drops sources below the floor on the strategy's primary
// dimension.
func filterByStrategy(sources []Source, strategy Strategy) (kept []Source, excluded []string) {
	for _, s := range sources {
		score := s.Quality
		if strategy == StrategyAuthorityBased {
			score = s.Authority
		}
		if strategy == StrategyConsensusBased {
			score = s.Confidence
		}
		if score < qualityFloor {
			excluded = append(excluded, s.ID)
			continue
		}
		kept = append(kept, s)
	}
	return kept, excluded
}

// weigh assigns per-source weights under the strategy.
func weigh(sources []Source, strategy Strategy) map[string]float64 {
	weights := make(map[string]float64, len(sources))

	switch strategy {
	case StrategyAuthorityBased:
		for _, s := range sources {
			weights[s.ID] = s.Authority * s.Confidence
		}
	case StrategyConsensusBased:
		// Sources most typical of the group weigh highest.
		for i, s := range sources {
			if len(sources) == 1 {
				weights[s.ID] = 1
				continue
			}
			total := 0.0
			for j, other := range sources {
				if i == j {
					continue
				}
				total += Jaccard(s.Text, other.Text)
			}
			weights[s.ID] = total / float64(len(sources)-1)
		}
	default: // weighted_average
		for _, s := range sources {
			weights[s.ID] = s.Confidence * s.Quality * s.Relevance
		}
	}

	return weights
}

// How much of each follow-on source is quoted after the lead source.
const followOnChars = 300

// assemble concatenates a prefix of the highest-weighted source with
// truncated prefixes of the next sources until the character budget is met.
func assemble(ordered []Source, maxChars int) string {
	var b strings.Builder

	for i, s := range ordered {
		remaining := maxChars - b.Len()
		if remaining <= 0 {
			break
		}

		text := strings.TrimSpace(s.Text)
		limit := remaining
		if i > 0 && followOnChars < limit {
			limit = followOnChars
		}
		if len(text) > limit {
			text = text[:limit]
		}

		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	return b.String()
}

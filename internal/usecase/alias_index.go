package usecase

import (
	"sort"
)

// aliasKind tags the state of a registered token. A token with no entry in
// the alias table is unregistered.
type aliasKind int

const (
	aliasSingle aliasKind = iota + 1
	aliasShared
)

// alias is the per-token state. Promotion only goes single -> shared.
type alias struct {
	kind     aliasKind
	keywords []string // exactly one entry when kind is aliasSingle
}

func (a *alias) contains(keyword string) bool {
	for _, k := range a.keywords {
		if k == keyword {
			return true
		}
	}
	return false
}

// AliasOptions configures an AliasIndex
type AliasOptions struct {
	// Margin is the minimum lead the best candidate needs over the runner-up
	Margin float64
	// Ignorable tokens are never registered and therefore never vote
	Ignorable map[string]struct{}
}

// AliasIndex detects canonical keywords in free text by letting each query
// token vote for the keywords it aliases.
// It is read-only once built and safe for concurrent lookups.
type AliasIndex struct {
	margin    float64
	ignorable map[string]struct{}
	keywords  map[string][]string
	aliases   map[string]*alias
}

// NewAliasIndex builds an index over normalized keyword strings
func NewAliasIndex(keywords []string, opts AliasOptions) *AliasIndex {
	idx := &AliasIndex{
		margin:    opts.Margin,
		ignorable: opts.Ignorable,
		keywords:  make(map[string][]string, len(keywords)),
		aliases:   make(map[string]*alias),
	}
	if idx.ignorable == nil {
		idx.ignorable = map[string]struct{}{}
	}

	for _, keyword := range keywords {
		tokens := Tokenize(keyword)
		idx.keywords[keyword] = tokens
		for _, token := range tokens {
			idx.Register(token, keyword)
		}
	}

	return idx
}

// Register records token as an alias of keyword.
// Registering the same pair twice leaves the table unchanged.
func (x *AliasIndex) Register(token, keyword string) {
	if _, skip := x.ignorable[token]; skip {
		return
	}

	current, exists := x.aliases[token]
	switch {
	case !exists:
		x.aliases[token] = &alias{kind: aliasSingle, keywords: []string{keyword}}
	case current.kind == aliasShared:
		if !current.contains(keyword) {
			current.keywords = append(current.keywords, keyword)
		}
	case current.keywords[0] != keyword:
		x.aliases[token] = &alias{
			kind:     aliasShared,
			keywords: []string{current.keywords[0], keyword},
		}
	}
}

// Lookup returns the keyword (or reduced key) decisively detected in query.
// reduce may be nil.
func (x *AliasIndex) Lookup(query string, reduce map[string][]string) (string, bool) {
	return selectBest(x.Scores(query, reduce), x.margin)
}

// Scores returns the vote score of every candidate with a nonzero vote,
// after the missing-word penalty and the optional reduction.
func (x *AliasIndex) Scores(query string, reduce map[string][]string) map[string]float64 {
	tokens := Tokenize(query)

	scores := make(map[string]float64)
	for _, token := range tokens {
		a, found := x.aliases[token]
		if !found {
			continue
		}
		addSplit(scores, a.keywords, 1)
	}

	x.applyMissingWordPenalty(scores, tokenSet(tokens))

	if reduce != nil {
		scores = reduceScores(scores, reduce)
	}

	return scores
}

// applyMissingWordPenalty scales each score by the fraction of the keyword's
// own tokens present in the query
func (x *AliasIndex) applyMissingWordPenalty(scores map[string]float64, query map[string]struct{}) {
	for keyword, score := range scores {
		keywordTokens := x.keywords[keyword]
		total := len(keywordTokens)
		missing := 0
		for _, token := range keywordTokens {
			if _, ok := query[token]; !ok {
				missing++
			}
		}
		if total > 0 && missing > 0 {
			scores[keyword] = score * (1 - float64(missing)/float64(total))
		}
	}
}

// Margin returns the ambiguity margin used by Lookup
func (x *AliasIndex) Margin() float64 {
	return x.margin
}

// Keywords returns the canonical keywords, sorted
func (x *AliasIndex) Keywords() []string {
	return sortedKeys(x.keywords)
}

// reduceScores moves each score onto its reduction targets, split equally.
// Keys are visited in sorted order so the float sums are reproducible.
func reduceScores(scores map[string]float64, reduce map[string][]string) map[string]float64 {
	result := make(map[string]float64)
	for _, key := range sortedKeys(scores) {
		addSplit(result, reduce[key], scores[key])
	}
	return result
}

// addSplit adds amount divided equally across keys
func addSplit(scores map[string]float64, keys []string, amount float64) {
	if len(keys) == 0 {
		return
	}
	share := amount / float64(len(keys))
	for _, key := range keys {
		scores[key] += share
	}
}

// selectBest accepts the top candidate only when top >= second + margin.
// With a single candidate the runner-up score is 0.
func selectBest(scores map[string]float64, margin float64) (string, bool) {
	var (
		best        string
		bestScore   float64
		secondScore float64
		found       bool
	)

	for _, key := range sortedKeys(scores) {
		score := scores[key]
		switch {
		case !found || score > bestScore:
			if found {
				secondScore = bestScore
			}
			best, bestScore, found = key, score, true
		case score > secondScore:
			secondScore = score
		}
	}

	if !found || bestScore <= 0 {
		return "", false
	}
	if bestScore >= secondScore+margin {
		return best, true
	}
	return "", false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

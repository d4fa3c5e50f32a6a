package extract

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// stopwords are common terms excluded from keyword extraction.
var stopwords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "all": true,
	"an": true, "and": true, "any": true, "are": true, "as": true,
	"at": true, "be": true, "been": true, "before": true, "being": true,
	"below": true, "between": true, "both": true, "but": true, "by": true,
	"can": true, "could": true, "did": true, "do": true, "does": true,
	"during": true, "each": true, "for": true, "from": true, "further": true,
	"had": true, "has": true, "have": true, "having": true, "he": true,
	"her": true, "here": true, "his": true, "how": true, "if": true,
	"in": true, "into": true, "is": true, "it": true, "its": true,
	"may": true, "more": true, "most": true, "no": true, "nor": true,
	"not": true, "of": true, "on": true, "only": true, "or": true,
	"other": true, "our": true, "over": true, "per": true, "shall": true,
	"she": true, "should": true, "so": true, "some": true, "such": true,
	"than": true, "that": true, "the": true, "their": true, "them": true,
	"then": true, "there": true, "these": true, "they": true, "this": true,
	"those": true, "through": true, "to": true, "under": true, "until": true,
	"up": true, "upon": true, "was": true, "we": true, "were": true,
	"what": true, "when": true, "where": true, "which": true, "while": true,
	"who": true, "whom": true, "why": true, "will": true, "with": true,
	"would": true, "you": true, "your": true,
}

// tokenize splits text into lowercase terms, keeping letters and digits.
// Single-rune terms are dropped; multi-digit runs like years and clause
// numbers survive the cutoff.
func tokenize(text string) []string {
	terms := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := terms[:0]
	for _, term := range terms {
		if len(term) < 2 {
			continue
		}
		out = append(out, term)
	}
	return out
}

// termStat tracks one term's frequency and first occurrence within a document.
type termStat struct {
	term  string
	count int
	first int
}

// corpusStats accumulates document frequencies across extracted documents.
// It backs the IDF component of keyword scoring. Safe for concurrent use.
type corpusStats struct {
	mu       sync.Mutex
	docCount int
	docFreq  map[string]int
}

func newCorpusStats() *corpusStats {
	return &corpusStats{docFreq: make(map[string]int)}
}

// observe records one document's distinct terms into the corpus counts.
func (c *corpusStats) observe(terms []string) {
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		seen[term] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.docCount++
	for term := range seen {
		c.docFreq[term]++
	}
}

// idf returns the inverse document frequency for a term. Terms never seen
// before score as if they appeared in a single document.
func (c *corpusStats) idf(term string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	df := c.docFreq[term]
	if df < 1 {
		df = 1
	}
	return math.Log(1 + float64(c.docCount)/float64(df))
}

// extractKeywords returns the top terms of a document ranked by TF-IDF.
// Deterministic for a fixed corpus state: ties are broken by first occurrence
// in the text, then alphabetically.
func extractKeywords(terms []string, corpus *corpusStats, limit int) []string {
	stats := make(map[string]*termStat, len(terms))
	for pos, term := range terms {
		if stopwords[term] {
			continue
		}
		st, ok := stats[term]
		if !ok {
			stats[term] = &termStat{term: term, count: 1, first: pos}
			continue
		}
		st.count++
	}

	ranked := make([]*termStat, 0, len(stats))
	for _, st := range stats {
		ranked = append(ranked, st)
	}

	scores := make(map[string]float64, len(ranked))
	for _, st := range ranked {
		scores[st.term] = float64(st.count) * corpus.idf(st.term)
	}

	sort.Slice(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i].term], scores[ranked[j].term]
		if si != sj {
			return si > sj
		}
		if ranked[i].first != ranked[j].first {
			return ranked[i].first < ranked[j].first
		}
		return ranked[i].term < ranked[j].term
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	keywords := make([]string, len(ranked))
	for i, st := range ranked {
		keywords[i] = st.term
	}
	return keywords
}

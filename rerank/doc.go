// Package rerank implements the second ranking stage: a learned relevance
// pass over the lexical shortlist, based only on compact metadata
// descriptions.
//
// The scoring strategy is pluggable. Production deployments use an
// ai.RelevanceScorer-backed strategy; tests and offline setups use the
// deterministic token-overlap strategy. A failing primary strategy degrades
// to the deterministic fallback instead of failing the query.
package rerank

// Package lexical implements the candidate filter stage of the query
// pipeline: a cheap BM25 shortlist over document metadata that narrows the
// corpus before any model-backed work happens.
//
// Only the compact metadata records (title, keywords, summary) are scored,
// never full document text. The caller's access predicate is applied to the
// pool before scoring, so inaccessible documents neither appear in results
// nor skew the corpus statistics used for ranking.
package lexical

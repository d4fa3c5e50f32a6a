package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// Fingerprint identifies a specific revision of a document's text.
// Two documents with identical text have identical fingerprints.
type Fingerprint uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	return ID(hash64(text))
}

// FingerprintText computes the content fingerprint for a document's text.
func FingerprintText(text string) Fingerprint {
	return Fingerprint(hash64(text))
}

func hash64(text string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// VisibilityLevel controls which principals may see a document.
// Higher values require higher clearance.
type VisibilityLevel int

const (
	// VisibilityPublic documents are readable by any principal.
	VisibilityPublic VisibilityLevel = iota + 1
	// VisibilityInternal documents require internal clearance.
	VisibilityInternal
	// VisibilityConfidential documents require confidential clearance and
	// membership in the owning institution.
	VisibilityConfidential
)

// ApprovalState is the workflow state of a document, owned by the external
// approval collaborator. Only approved documents are ever searchable.
type ApprovalState int

const (
	// ApprovalPending documents are awaiting review.
	ApprovalPending ApprovalState = iota + 1
	// ApprovalApproved documents have passed review and may be served.
	ApprovalApproved
	// ApprovalRejected documents failed review.
	ApprovalRejected
)

// EmbeddingStatus tracks a document's position in the lazy embedding lifecycle.
//
// Transitions are monotonic within one query cycle:
//
//	NotEmbedded --[claim]--> EmbeddingInProgress --[success]--> Embedded
//	                                             --[failure]--> EmbeddingFailed
//
// A content fingerprint change resets the status to NotEmbedded explicitly,
// never implicitly.
type EmbeddingStatus int

const (
	// NotEmbedded means no chunk embeddings exist for the document.
	NotEmbedded EmbeddingStatus = iota + 1
	// EmbeddingInProgress means exactly one worker holds the embedding claim.
	EmbeddingInProgress
	// Embedded means a complete chunk set exists for the document.
	Embedded
	// EmbeddingFailed means the last embedding attempt failed; the next query
	// that selects the document may retry.
	EmbeddingFailed
)

// MetadataStatus is the lifecycle state of a DocumentMetadata record.
type MetadataStatus int

const (
	// MetadataProcessing means extraction has been queued but not finished.
	MetadataProcessing MetadataStatus = iota + 1
	// MetadataReady means the record is complete and searchable.
	MetadataReady
	// MetadataFailed means extraction failed; FailReason carries the cause.
	MetadataFailed
)

// AccessTriple is the access-control tuple that determines who may see a
// document or its derived chunks.
type AccessTriple struct {
	Visibility    VisibilityLevel
	InstitutionID ID
	Approval      ApprovalState
}

// Document owns the raw extracted text of a stored document plus its
// access-control attributes and embedding lifecycle state.
// Created and mutated by the ingestion collaborator; this core only ever
// touches EmbeddingStatus.
type Document struct {
	Id              ID
	Text            string
	Fingerprint     Fingerprint
	Access          AccessTriple
	EmbeddingStatus EmbeddingStatus
	InsertedAt      time.Time
	UpdatedAt       time.Time
}

// DocumentMetadata is the compact, cheaply-searchable record derived from a
// document's text. One-to-one with Document, created asynchronously after
// document creation.
type DocumentMetadata struct {
	DocumentId  ID
	Title       string
	Category    string
	Summary     string
	Keywords    []string
	Status      MetadataStatus
	FailReason  string
	Fingerprint Fingerprint // fingerprint of the text this record was derived from
	InsertedAt  time.Time
	UpdatedAt   time.Time
}

// SearchText returns the concatenation of the fields the lexical filter
// ranks over. A record mid-extraction still contributes its title.
func (m *DocumentMetadata) SearchText() string {
	text := m.Title
	for _, kw := range m.Keywords {
		text += " " + kw
	}
	if m.Summary != "" {
		text += " " + m.Summary
	}
	return text
}

// Chunk is a contiguous slice of a document's text with its vector embedding.
// The Access field is a verbatim copy of the parent document's triple at the
// moment the chunk was created; Fingerprint records which text revision it
// was cut from, so staleness is checkable.
type Chunk struct {
	DocumentId  ID
	Seq         int
	Text        string
	Vector      []float32
	Access      AccessTriple
	Fingerprint Fingerprint
}

// Principal is an already-validated identity supplied by the external
// authentication collaborator.
type Principal struct {
	Role          string
	InstitutionID ID
	Clearance     VisibilityLevel
}

// AccessPredicate decides whether a principal may see content carrying a
// given access triple. It is constructed per query and never persisted.
type AccessPredicate struct {
	institutionID ID
	clearance     VisibilityLevel
}

// PredicateFor builds the access predicate for a principal.
func PredicateFor(p Principal) AccessPredicate {
	return AccessPredicate{
		institutionID: p.InstitutionID,
		clearance:     p.Clearance,
	}
}

// Allows reports whether content carrying the triple may be shown to the
// predicate's principal. Unapproved content is never visible. Confidential
// content additionally requires membership in the owning institution.
func (a AccessPredicate) Allows(t AccessTriple) bool {
	if t.Approval != ApprovalApproved {
		return false
	}
	if t.Visibility > a.clearance {
		return false
	}
	if t.Visibility == VisibilityConfidential && t.InstitutionID != a.institutionID {
		return false
	}
	return true
}

// ChunkMatch is a chunk match from predicate-filtered vector similarity search.
type ChunkMatch struct {
	Chunk *Chunk
	Score float32
}

// Candidate is a document shortlisted by the lexical filter.
type Candidate struct {
	DocumentId   ID
	LexicalScore float32
}

// RankedCandidate is a candidate after reranking, carrying both scores.
type RankedCandidate struct {
	DocumentId     ID
	LexicalScore   float32
	RelevanceScore float32
}

// SearchResult is one entry of the final ranked result list. ChunkText and
// ChunkSeq point at the best-matching span for citation.
type SearchResult struct {
	DocumentId   ID
	ChunkText    string
	ChunkSeq     int
	Score        float32
	VectorScore  float32
	LexicalScore float32
}

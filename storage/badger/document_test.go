package badger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/docentlabs/docent/core"
	"github.com/docentlabs/docent/storage"
)

func approvedTriple(institution core.ID) core.AccessTriple {
	return core.AccessTriple{
		Visibility:    core.VisibilityPublic,
		InstitutionID: institution,
		Approval:      core.ApprovalApproved,
	}
}

func TestDocumentBasics(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { docRepo.Close(); backend.Close() }()

	ctx := context.Background()

	doc := &core.Document{
		Text:   "National Education Policy 2024 outlines reforms in higher education funding.",
		Access: approvedTriple(42),
	}

	added, err := docRepo.AddDocuments(ctx, doc)
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}

	if len(added) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(added))
	}
	if added[0].Id == 0 {
		t.Fatal("Expected non-zero ID")
	}
	if added[0].Fingerprint != core.FingerprintText(doc.Text) {
		t.Fatal("Expected fingerprint to be derived from text")
	}
	if added[0].EmbeddingStatus != core.NotEmbedded {
		t.Fatalf("Expected NotEmbedded status, got %d", added[0].EmbeddingStatus)
	}

	retrieved, err := docRepo.GetDocument(ctx, added[0].Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.Text != doc.Text {
		t.Fatalf("Unexpected text: %q", retrieved.Text)
	}
}

func TestDocumentDateRange(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { docRepo.Close(); backend.Close() }()

	ctx := context.Background()

	docs := []*core.Document{
		{Text: "First circular issued in spring.", Access: approvedTriple(1)},
		{Text: "Second circular issued in summer.", Access: approvedTriple(1)},
	}
	if _, err := docRepo.AddDocuments(ctx, docs...); err != nil {
		t.Fatalf("Failed to add documents: %v", err)
	}

	start := time.Now().UTC().Add(-time.Minute)
	end := time.Now().UTC().Add(time.Minute)
	results, err := docRepo.GetDocumentsByDateRange(ctx, start, end)
	if err != nil {
		t.Fatalf("Failed to get documents by date range: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(results))
	}
}

func TestClaimEmbedding_Lifecycle(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { docRepo.Close(); backend.Close() }()

	ctx := context.Background()

	added, err := docRepo.AddDocuments(ctx, &core.Document{
		Text:   "A policy document awaiting embedding.",
		Access: approvedTriple(1),
	})
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}
	doc := added[0]

	// First claim succeeds.
	observed, err := docRepo.ClaimEmbedding(ctx, doc.Id, doc.Fingerprint, time.Minute)
	if err != nil {
		t.Fatalf("Expected claim to succeed, got %v", err)
	}
	if observed != core.NotEmbedded {
		t.Fatalf("Expected observed status NotEmbedded, got %d", observed)
	}

	// Second claim is rejected while the first is held.
	_, err = docRepo.ClaimEmbedding(ctx, doc.Id, doc.Fingerprint, time.Minute)
	if !errors.Is(err, storage.ErrAlreadyClaimed) {
		t.Fatalf("Expected ErrAlreadyClaimed, got %v", err)
	}

	// Failure releases the claim into EmbeddingFailed, which is claimable again.
	if err := docRepo.MarkEmbeddingFailed(ctx, doc.Id); err != nil {
		t.Fatalf("Failed to mark embedding failed: %v", err)
	}
	observed, err = docRepo.ClaimEmbedding(ctx, doc.Id, doc.Fingerprint, time.Minute)
	if err != nil {
		t.Fatalf("Expected reclaim after failure to succeed, got %v", err)
	}
	if observed != core.EmbeddingFailed {
		t.Fatalf("Expected observed status EmbeddingFailed, got %d", observed)
	}
}

func TestClaimEmbedding_StaleFingerprint(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { docRepo.Close(); backend.Close() }()

	ctx := context.Background()

	added, err := docRepo.AddDocuments(ctx, &core.Document{
		Text:   "Original revision.",
		Access: approvedTriple(1),
	})
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}

	_, err = docRepo.ClaimEmbedding(ctx, added[0].Id, core.FingerprintText("some other revision"), time.Minute)
	if !errors.Is(err, storage.ErrStaleFingerprint) {
		t.Fatalf("Expected ErrStaleFingerprint, got %v", err)
	}
}

func TestClaimEmbedding_ConcurrentClaims(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { docRepo.Close(); backend.Close() }()

	ctx := context.Background()

	added, err := docRepo.AddDocuments(ctx, &core.Document{
		Text:   "A cold document selected by many queries at once.",
		Access: approvedTriple(1),
	})
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}
	doc := added[0]

	const claimants = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, claimants)

	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := docRepo.ClaimEmbedding(ctx, doc.Id, doc.Fingerprint, time.Minute)
			if err == nil {
				wins <- struct{}{}
				return
			}
			if !errors.Is(err, storage.ErrClaimLost) && !errors.Is(err, storage.ErrAlreadyClaimed) {
				t.Errorf("Unexpected claim error: %v", err)
			}
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for range wins {
		winners++
	}
	if winners != 1 {
		t.Fatalf("Expected exactly one winning claim, got %d", winners)
	}

	current, err := docRepo.GetDocument(ctx, doc.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if current.EmbeddingStatus != core.EmbeddingInProgress {
		t.Fatalf("Expected EmbeddingInProgress, got %d", current.EmbeddingStatus)
	}
}

func TestClaimEmbedding_StaleLeaseReclaim(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { docRepo.Close(); backend.Close() }()

	ctx := context.Background()

	added, err := docRepo.AddDocuments(ctx, &core.Document{
		Text:   "A document whose embedding worker crashed.",
		Access: approvedTriple(1),
	})
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}
	doc := added[0]

	if _, err := docRepo.ClaimEmbedding(ctx, doc.Id, doc.Fingerprint, time.Minute); err != nil {
		t.Fatalf("Expected first claim to succeed, got %v", err)
	}

	// With a tiny lease, the stuck claim becomes reclaimable.
	time.Sleep(5 * time.Millisecond)
	if _, err := docRepo.ClaimEmbedding(ctx, doc.Id, doc.Fingerprint, time.Millisecond); err != nil {
		t.Fatalf("Expected stale lease reclaim to succeed, got %v", err)
	}
}

func TestResetEmbedding(t *testing.T) {
	docRepo, _, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { docRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	added, err := docRepo.AddDocuments(ctx, &core.Document{
		Text:   "A document that will be re-ingested with new text.",
		Access: approvedTriple(1),
	})
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}
	doc := added[0]

	if _, err := docRepo.ClaimEmbedding(ctx, doc.Id, doc.Fingerprint, time.Minute); err != nil {
		t.Fatalf("Failed to claim: %v", err)
	}
	chunks := []*core.Chunk{
		{DocumentId: doc.Id, Seq: 0, Text: "first", Vector: []float32{1, 0}, Access: doc.Access, Fingerprint: doc.Fingerprint},
		{DocumentId: doc.Id, Seq: 1, Text: "second", Vector: []float32{0, 1}, Access: doc.Access, Fingerprint: doc.Fingerprint},
	}
	if err := chunkRepo.CommitChunks(ctx, doc.Id, chunks); err != nil {
		t.Fatalf("Failed to commit chunks: %v", err)
	}

	if err := docRepo.ResetEmbedding(ctx, doc.Id); err != nil {
		t.Fatalf("Failed to reset embedding: %v", err)
	}

	current, err := docRepo.GetDocument(ctx, doc.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if current.EmbeddingStatus != core.NotEmbedded {
		t.Fatalf("Expected NotEmbedded after reset, got %d", current.EmbeddingStatus)
	}

	count, err := chunkRepo.CountChunks(ctx, doc.Id)
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected 0 chunks after reset, got %d", count)
	}
}

func TestUpdateAccess_SingleStepReclassification(t *testing.T) {
	docRepo, _, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { docRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	added, err := docRepo.AddDocuments(ctx, &core.Document{
		Text:   "A published circular that gets reclassified.",
		Access: approvedTriple(1),
	})
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}
	doc := added[0]

	if _, err := docRepo.ClaimEmbedding(ctx, doc.Id, doc.Fingerprint, time.Minute); err != nil {
		t.Fatalf("Failed to claim: %v", err)
	}
	chunks := []*core.Chunk{
		{DocumentId: doc.Id, Seq: 0, Text: "first", Vector: []float32{1, 0}, Access: doc.Access, Fingerprint: doc.Fingerprint},
		{DocumentId: doc.Id, Seq: 1, Text: "second", Vector: []float32{0, 1}, Access: doc.Access, Fingerprint: doc.Fingerprint},
	}
	if err := chunkRepo.CommitChunks(ctx, doc.Id, chunks); err != nil {
		t.Fatalf("Failed to commit chunks: %v", err)
	}

	confidential := core.AccessTriple{
		Visibility:    core.VisibilityConfidential,
		InstitutionID: 1,
		Approval:      core.ApprovalApproved,
	}
	if err := docRepo.UpdateAccess(ctx, doc.Id, confidential); err != nil {
		t.Fatalf("Failed to update access: %v", err)
	}

	// The triple change, the chunk drop and the status reset land together.
	current, err := docRepo.GetDocument(ctx, doc.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if current.Access != confidential {
		t.Fatalf("Expected confidential triple, got %+v", current.Access)
	}
	if current.EmbeddingStatus != core.NotEmbedded {
		t.Fatalf("Expected NotEmbedded after access change, got %d", current.EmbeddingStatus)
	}
	count, err := chunkRepo.CountChunks(ctx, doc.Id)
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected 0 chunks after access change, got %d", count)
	}

	if err := docRepo.UpdateAccess(ctx, 999999, confidential); err == nil {
		t.Fatal("Expected error for unknown document")
	}
}

func TestDeleteDocuments_Cascades(t *testing.T) {
	docRepo, metaRepo, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { docRepo.Close(); metaRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	added, err := docRepo.AddDocuments(ctx, &core.Document{
		Text:   "A short-lived document.",
		Access: approvedTriple(1),
	})
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}
	doc := added[0]

	meta := &core.DocumentMetadata{
		DocumentId:  doc.Id,
		Title:       "Short-lived",
		Status:      core.MetadataReady,
		Fingerprint: doc.Fingerprint,
	}
	if err := metaRepo.PutMetadata(ctx, meta); err != nil {
		t.Fatalf("Failed to put metadata: %v", err)
	}

	if _, err := docRepo.ClaimEmbedding(ctx, doc.Id, doc.Fingerprint, time.Minute); err != nil {
		t.Fatalf("Failed to claim: %v", err)
	}
	chunks := []*core.Chunk{
		{DocumentId: doc.Id, Seq: 0, Text: "only chunk", Vector: []float32{1}, Access: doc.Access, Fingerprint: doc.Fingerprint},
	}
	if err := chunkRepo.CommitChunks(ctx, doc.Id, chunks); err != nil {
		t.Fatalf("Failed to commit chunks: %v", err)
	}

	if err := docRepo.DeleteDocuments(ctx, doc.Id); err != nil {
		t.Fatalf("Failed to delete document: %v", err)
	}

	if _, err := docRepo.GetDocument(ctx, doc.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for document, got %v", err)
	}
	if _, err := metaRepo.GetMetadata(ctx, doc.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for metadata, got %v", err)
	}
	count, err := chunkRepo.CountChunks(ctx, doc.Id)
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected 0 chunks after delete, got %d", count)
	}
}

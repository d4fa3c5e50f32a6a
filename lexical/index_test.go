package lexical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docentlabs/docent/core"
	"github.com/docentlabs/docent/storage"
	"github.com/docentlabs/docent/storage/badger"
)

type fixture struct {
	documents storage.DocumentRepository
	metadata  storage.MetadataRepository
	index     *Index
	cleanup   func()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	docRepo, metaRepo, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)

	ix, err := NewIndex(docRepo, metaRepo)
	require.NoError(t, err)

	return &fixture{
		documents: docRepo,
		metadata:  metaRepo,
		index:     ix,
		cleanup:   func() { backend.Close() },
	}
}

// addRecord stores a document with an approved access triple plus a Ready
// metadata record, and returns the document id.
func (f *fixture) addRecord(t *testing.T, text, title string, keywords []string, triple core.AccessTriple) core.ID {
	t.Helper()

	doc := &core.Document{Text: text, Access: triple}
	added, err := f.documents.AddDocuments(context.Background(), doc)
	require.NoError(t, err)

	md := &core.DocumentMetadata{
		DocumentId:  added[0].Id,
		Title:       title,
		Keywords:    keywords,
		Status:      core.MetadataReady,
		Fingerprint: added[0].Fingerprint,
	}
	require.NoError(t, f.metadata.PutMetadata(context.Background(), md))
	return added[0].Id
}

func publicTriple() core.AccessTriple {
	return core.AccessTriple{
		Visibility:    core.VisibilityPublic,
		InstitutionID: 1,
		Approval:      core.ApprovalApproved,
	}
}

func publicPredicate() core.AccessPredicate {
	return core.PredicateFor(core.Principal{
		Role:          "student",
		InstitutionID: 1,
		Clearance:     core.VisibilityPublic,
	})
}

func TestCandidates_RanksByRelevance(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	scholarship := f.addRecord(t, "scholarship deadlines", "Merit Scholarship Notification",
		[]string{"scholarship", "deadline", "undergraduate"}, publicTriple())
	f.addRecord(t, "tender notice", "Laboratory Construction Tender",
		[]string{"tender", "construction", "laboratory"}, publicTriple())

	candidates, err := f.index.Candidates(context.Background(), "scholarship deadline", publicPredicate(), 10)
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, scholarship, candidates[0].DocumentId)
	assert.Greater(t, candidates[0].LexicalScore, float32(0))
}

func TestCandidates_EmptyResultIsNotAnError(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	f.addRecord(t, "budget circular", "Annual Budget Circular",
		[]string{"budget", "circular"}, publicTriple())

	candidates, err := f.index.Candidates(context.Background(), "quantum chromodynamics", publicPredicate(), 10)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestCandidates_EmptyQuery(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	candidates, err := f.index.Candidates(context.Background(), "   ", publicPredicate(), 10)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestCandidates_InvalidLimit(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	_, err := f.index.Candidates(context.Background(), "budget", publicPredicate(), 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestCandidates_PredicateFiltersPool(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	confidential := core.AccessTriple{
		Visibility:    core.VisibilityConfidential,
		InstitutionID: 42,
		Approval:      core.ApprovalApproved,
	}
	f.addRecord(t, "confidential budget allocations", "Internal Budget Memo",
		[]string{"budget", "allocation"}, confidential)
	visible := f.addRecord(t, "public budget summary", "Budget Summary",
		[]string{"budget", "summary"}, publicTriple())

	candidates, err := f.index.Candidates(context.Background(), "budget", publicPredicate(), 10)
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, visible, candidates[0].DocumentId)
}

func TestCandidates_UnapprovedNeverVisible(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	pending := core.AccessTriple{
		Visibility:    core.VisibilityPublic,
		InstitutionID: 1,
		Approval:      core.ApprovalPending,
	}
	f.addRecord(t, "pending admission notice", "Admission Notice Draft",
		[]string{"admission", "notice"}, pending)

	candidates, err := f.index.Candidates(context.Background(), "admission notice", publicPredicate(), 10)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestCandidates_FailedRecordsSkipped(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	doc := &core.Document{Text: "broken scan", Access: publicTriple()}
	added, err := f.documents.AddDocuments(context.Background(), doc)
	require.NoError(t, err)

	failed := &core.DocumentMetadata{
		DocumentId: added[0].Id,
		Title:      "broken scan",
		Status:     core.MetadataFailed,
		FailReason: "unreadable",
	}
	require.NoError(t, f.metadata.PutMetadata(context.Background(), failed))

	candidates, err := f.index.Candidates(context.Background(), "broken scan", publicPredicate(), 10)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestCandidates_ProcessingRecordsContribute(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	doc := &core.Document{Text: "curriculum revision", Access: publicTriple()}
	added, err := f.documents.AddDocuments(context.Background(), doc)
	require.NoError(t, err)

	// Mid-extraction: title only, still shortlistable
	processing := &core.DocumentMetadata{
		DocumentId: added[0].Id,
		Title:      "Curriculum Revision 2025",
		Status:     core.MetadataProcessing,
	}
	require.NoError(t, f.metadata.PutMetadata(context.Background(), processing))

	candidates, err := f.index.Candidates(context.Background(), "curriculum revision", publicPredicate(), 10)
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, added[0].Id, candidates[0].DocumentId)
}

func TestCandidates_LimitRespected(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	for i := 0; i < 5; i++ {
		text := "examination schedule variant " + string(rune('a'+i))
		f.addRecord(t, text, text, []string{"examination", "schedule"}, publicTriple())
	}

	candidates, err := f.index.Candidates(context.Background(), "examination schedule", publicPredicate(), 3)
	require.NoError(t, err)
	assert.Len(t, candidates, 3)
}

func TestTokenizeQuery(t *testing.T) {
	assert.Equal(t, []string{"scholarship", "deadlines", "2024"}, Tokenize("Scholarship deadlines, 2024!"))
	assert.Empty(t, Tokenize(""))
}

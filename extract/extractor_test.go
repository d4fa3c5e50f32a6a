package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docentlabs/docent/ai"
	"github.com/docentlabs/docent/ai/mock"
	"github.com/docentlabs/docent/core"
)

func testDocument(text string) *core.Document {
	return &core.Document{
		Id:          core.IDFromContent(text),
		Text:        text,
		Fingerprint: core.FingerprintText(text),
	}
}

func TestExtract_Heuristics(t *testing.T) {
	e, err := NewExtractor(nil)
	require.NoError(t, err)

	doc := testDocument("National Education Policy 2024 outlines reforms in higher education funding.")
	md, err := e.Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, doc.Id, md.DocumentId)
	assert.Equal(t, doc.Fingerprint, md.Fingerprint)
	assert.Equal(t, core.MetadataReady, md.Status)
	assert.Equal(t, "National Education Policy 2024 outlines reforms in higher education funding", md.Title)
	assert.Equal(t, "policy", md.Category)

	assert.Contains(t, md.Keywords, "education")
	assert.Contains(t, md.Keywords, "policy")
	assert.Contains(t, md.Keywords, "2024")
}

func TestExtract_EmptyText(t *testing.T) {
	e, err := NewExtractor(nil)
	require.NoError(t, err)

	doc := &core.Document{Id: 42, Text: "   \n  "}
	md, err := e.Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, core.MetadataFailed, md.Status)
	assert.NotEmpty(t, md.FailReason)
}

func TestExtract_NilDocument(t *testing.T) {
	e, err := NewExtractor(nil)
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilDocument)
}

func TestExtract_EnrichmentImprovesRecord(t *testing.T) {
	enricher := mock.NewMockEnricher()
	enricher.EnrichFunc = func(ctx context.Context, text string) (*ai.Enrichment, error) {
		return &ai.Enrichment{
			Title:    "Merit Scholarship Notification",
			Category: "scholarship",
			Summary:  "Announces application deadlines for the merit scholarship.",
			Entities: []string{"merit scholarship"},
		}, nil
	}

	e, err := NewExtractor(enricher)
	require.NoError(t, err)

	doc := testDocument("Applications for the merit scholarship close on 30 June.")
	md, err := e.Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, core.MetadataReady, md.Status)
	assert.Equal(t, "Merit Scholarship Notification", md.Title)
	assert.Equal(t, "scholarship", md.Category)
	assert.Equal(t, "Announces application deadlines for the merit scholarship.", md.Summary)
	assert.Contains(t, md.Keywords, "merit scholarship")
}

func TestExtract_EnrichmentFailureDegradesToHeuristics(t *testing.T) {
	enricher := mock.NewMockEnricher()
	enricher.EnrichFunc = func(ctx context.Context, text string) (*ai.Enrichment, error) {
		return nil, errors.New("model unavailable")
	}

	e, err := NewExtractor(enricher)
	require.NoError(t, err)

	doc := testDocument("Examination schedule for the winter semester 2025.")
	md, err := e.Extract(context.Background(), doc)
	require.NoError(t, err)

	// Still Ready, built from heuristics alone
	assert.Equal(t, core.MetadataReady, md.Status)
	assert.Equal(t, "examination", md.Category)
	assert.NotEmpty(t, md.Title)
	assert.NotEmpty(t, md.Keywords)
	assert.Empty(t, md.Summary)
}

func TestExtract_EnrichmentTimeoutIsBounded(t *testing.T) {
	enricher := mock.NewMockEnricher()
	enricher.EnrichFunc = func(ctx context.Context, text string) (*ai.Enrichment, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	e, err := NewExtractor(enricher, WithEnrichTimeout(50*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	doc := testDocument("Budget circular for the fiscal year.")
	md, err := e.Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, core.MetadataReady, md.Status)
}

func TestExtract_EnrichmentRejectsUnknownCategory(t *testing.T) {
	enricher := mock.NewMockEnricher()
	enricher.EnrichFunc = func(ctx context.Context, text string) (*ai.Enrichment, error) {
		return &ai.Enrichment{Category: "made-up-category"}, nil
	}

	e, err := NewExtractor(enricher)
	require.NoError(t, err)

	doc := testDocument("Scholarship applications for postgraduate study.")
	md, err := e.Extract(context.Background(), doc)
	require.NoError(t, err)

	// Heuristic category survives the bogus enrichment
	assert.Equal(t, "scholarship", md.Category)
}

func TestExtract_DeterministicForSameText(t *testing.T) {
	e, err := NewExtractor(nil)
	require.NoError(t, err)

	text := "Tender notice for construction of a new laboratory building at the University of Westfield."
	first, err := e.Extract(context.Background(), testDocument(text))
	require.NoError(t, err)
	second, err := e.Extract(context.Background(), testDocument(text))
	require.NoError(t, err)

	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, first.Category, second.Category)
	assert.Equal(t, first.Keywords, second.Keywords)
}

func TestExtract_OrganizationalUnits(t *testing.T) {
	e, err := NewExtractor(nil)
	require.NoError(t, err)

	doc := testDocument("Circular issued by the Ministry of Education regarding school infrastructure grants.")
	md, err := e.Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.Contains(t, md.Keywords, "ministry of education")
}

func TestExtract_ContextCancelled(t *testing.T) {
	e, err := NewExtractor(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Extract(ctx, testDocument("some text"))
	assert.Error(t, err)
}

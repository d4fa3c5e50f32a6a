package main

import (
	"bufio"
	"context"
	"flag"
	"iter"
	"log/slog"
	"os"

	"github.com/docentlabs/docent"
	"github.com/docentlabs/docent/core"
	"github.com/docentlabs/docent/ingestion"
)

// seedDocument pairs a document text with the access triple it carries.
type seedDocument struct {
	text       string
	visibility core.VisibilityLevel
	institute  core.ID
	approval   core.ApprovalState
}

var documents = []seedDocument{
	{
		text: "National Education Policy 2024. The ministry outlines a phased reform of higher education funding, " +
			"with performance-linked grants replacing flat allocations from the next academic year. Institutions " +
			"must publish audited utilization reports before the second tranche is released.",
		visibility: core.VisibilityPublic,
		institute:  1,
		approval:   core.ApprovalApproved,
	},
	{
		text: "Scholarship guidelines for merit students. Applications for the postgraduate merit scholarship open " +
			"on the first of March. Eligible candidates must hold a first-class degree from a recognized university " +
			"and submit two academic references. Awards cover tuition and a monthly stipend for two years.",
		visibility: core.VisibilityPublic,
		institute:  1,
		approval:   core.ApprovalApproved,
	},
	{
		text: "Tender notice for laboratory construction. Sealed bids are invited for the construction of a new " +
			"research laboratory building at the main campus. Bidders must be registered contractors with at least " +
			"five years of experience in institutional projects. The deadline for submission is the end of the quarter.",
		visibility: core.VisibilityPublic,
		institute:  2,
		approval:   core.ApprovalApproved,
	},
	{
		text: "Examination circular for the winter term. All departments must submit their question papers to the " +
			"controller of examinations three weeks before the schedule begins. Invigilation rosters will be " +
			"published a week in advance, and any clash requests go through the department office.",
		visibility: core.VisibilityInternal,
		institute:  2,
		approval:   core.ApprovalApproved,
	},
	{
		text: "Minutes of the academic council meeting. The council approved the revised curriculum for the computer " +
			"science program, deferred the proposal on credit transfer, and constituted a committee to review " +
			"admission criteria for the research track.",
		visibility: core.VisibilityInternal,
		institute:  1,
		approval:   core.ApprovalApproved,
	},
	{
		text: "Budget allocation report for the fiscal year. Departmental allocations reflect the weighted enrollment " +
			"model adopted last year. Infrastructure spending rises by twelve percent while discretionary travel " +
			"budgets are held flat. Detailed line items are attached for audit.",
		visibility: core.VisibilityConfidential,
		institute:  1,
		approval:   core.ApprovalApproved,
	},
	{
		text: "Draft regulation on research data retention. Proposes a five-year minimum retention period for raw " +
			"research data and designates the university archive as custodian. Circulated for comment; not yet " +
			"ratified by the academic council.",
		visibility: core.VisibilityInternal,
		institute:  3,
		approval:   core.ApprovalPending,
	},
	{
		text: "Notification on admission schedule. The undergraduate admission portal opens in the first week of June. " +
			"Counseling sessions follow in three rounds, and seat matrices for each program will be published " +
			"before the first round begins.",
		visibility: core.VisibilityPublic,
		institute:  3,
		approval:   core.ApprovalApproved,
	},
	{
		text: "Infrastructure maintenance guideline. Routine inspection of lecture halls and laboratories happens " +
			"each semester break. Departments report defects through the facilities portal; emergency repairs " +
			"bypass the quarterly schedule with registrar approval.",
		visibility: core.VisibilityInternal,
		institute:  2,
		approval:   core.ApprovalApproved,
	},
	{
		text: "Research grant utilization report. Of the forty-two funded projects, thirty-one submitted complete " +
			"utilization certificates on time. The remaining projects have been given a final deadline, after " +
			"which unspent funds revert to the central pool.",
		visibility: core.VisibilityConfidential,
		institute:  2,
		approval:   core.ApprovalApproved,
	},
}

var seedFileName = flag.String("src", "", "file of seed documents, one per line")
var dbPath = flag.String("db", "./docent_db", "path to the database directory")

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// documentsFromFile returns an iterator over documents read from a file, one
// per line. File-sourced documents are public, approved, and owned by
// institution 1.
func documentsFromFile(filename string) (iter.Seq[seedDocument], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(seedDocument) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
		for scanner.Scan() {
			doc := seedDocument{
				text:       scanner.Text(),
				visibility: core.VisibilityPublic,
				institute:  1,
				approval:   core.ApprovalApproved,
			}
			if !yield(doc) {
				return
			}
		}
	}, nil
}

// documentsFromSlice returns an iterator over the built-in corpus.
func documentsFromSlice(docs []seedDocument) iter.Seq[seedDocument] {
	return func(yield func(seedDocument) bool) {
		for _, doc := range docs {
			if !yield(doc) {
				return
			}
		}
	}
}

// registerBatched reads from a source iterator and registers documents in
// batches.
func registerBatched(ctx context.Context, pipeline *ingestion.Pipeline, source iter.Seq[seedDocument], batchSize int) error {
	batch := make([]*core.Document, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := pipeline.Register(ctx, batch...); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for seed := range source {
		batch = append(batch, &core.Document{
			Text: seed.text,
			Access: core.AccessTriple{
				Visibility:    seed.visibility,
				InstitutionID: seed.institute,
				Approval:      seed.approval,
			},
		})
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	return flush()
}

func main() {
	db, err := docent.NewDatabase(*dbPath)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		panic(err)
	}
	defer pipeline.Release()

	ctx := context.Background()

	var source iter.Seq[seedDocument]
	if seedFileName != nil && *seedFileName != "" {
		source, err = documentsFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = documentsFromSlice(documents)
	}

	if err := registerBatched(ctx, pipeline, source, 5); err != nil {
		panic(err)
	}
}

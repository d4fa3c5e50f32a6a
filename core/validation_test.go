package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validDocument() *Document {
	text := "Approved budget circular for the fiscal year."
	return &Document{
		Id:          IDFromContent(text),
		Text:        text,
		Fingerprint: FingerprintText(text),
		Access: AccessTriple{
			Visibility:    VisibilityPublic,
			InstitutionID: 1,
			Approval:      ApprovalApproved,
		},
		EmbeddingStatus: NotEmbedded,
	}
}

func TestValidateDocument(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		assert.NoError(t, ValidateDocument(validDocument()))
	})

	t.Run("nil document", func(t *testing.T) {
		err := ValidateDocument(nil)
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("empty text", func(t *testing.T) {
		doc := validDocument()
		doc.Text = ""
		err := ValidateDocument(doc)
		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("stale fingerprint", func(t *testing.T) {
		doc := validDocument()
		doc.Text = doc.Text + " Amended."
		err := ValidateDocument(doc)
		assert.ErrorIs(t, err, ErrFingerprintMismatch)
	})

	t.Run("unknown visibility", func(t *testing.T) {
		doc := validDocument()
		doc.Access.Visibility = 99
		err := ValidateDocument(doc)
		assert.ErrorIs(t, err, ErrInvalidVisibility)
	})

	t.Run("unknown embedding status", func(t *testing.T) {
		doc := validDocument()
		doc.EmbeddingStatus = 0
		err := ValidateDocument(doc)
		assert.ErrorIs(t, err, ErrInvalidEmbeddingStatus)
	})
}

func TestValidateMetadata(t *testing.T) {
	t.Run("valid processing record", func(t *testing.T) {
		meta := &DocumentMetadata{DocumentId: 1, Status: MetadataProcessing}
		assert.NoError(t, ValidateMetadata(meta))
	})

	t.Run("missing document id", func(t *testing.T) {
		meta := &DocumentMetadata{Status: MetadataReady}
		assert.ErrorIs(t, ValidateMetadata(meta), ErrInvalidMetadata)
	})

	t.Run("unknown status", func(t *testing.T) {
		meta := &DocumentMetadata{DocumentId: 1, Status: 0}
		assert.ErrorIs(t, ValidateMetadata(meta), ErrInvalidMetadata)
	})
}

func TestValidateChunk(t *testing.T) {
	valid := &Chunk{
		DocumentId: 1,
		Seq:        0,
		Text:       "a chunk of text",
		Access: AccessTriple{
			Visibility:    VisibilityPublic,
			InstitutionID: 1,
			Approval:      ApprovalApproved,
		},
	}

	t.Run("valid chunk", func(t *testing.T) {
		assert.NoError(t, ValidateChunk(valid))
	})

	t.Run("negative seq", func(t *testing.T) {
		chunk := *valid
		chunk.Seq = -1
		assert.ErrorIs(t, ValidateChunk(&chunk), ErrNegativeChunkSeq)
	})

	t.Run("empty text", func(t *testing.T) {
		chunk := *valid
		chunk.Text = ""
		assert.ErrorIs(t, ValidateChunk(&chunk), ErrEmptyText)
	})
}

package core

import (
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the domain entities. Written by hand against the
// mus-go primitives; field order is the wire format and must not change
// without a storage migration.

// IDMUS serializes IDs as varint-encoded uint64.
var IDMUS = idMUS{}

// FingerprintMUS serializes fingerprints as varint-encoded uint64.
var FingerprintMUS = fingerprintMUS{}

// AccessTripleMUS serializes access triples.
var AccessTripleMUS = accessTripleMUS{}

// DocumentMUS serializes Documents.
var DocumentMUS = documentMUS{}

// DocumentMetadataMUS serializes DocumentMetadata records.
var DocumentMetadataMUS = documentMetadataMUS{}

// ChunkMUS serializes Chunks.
var ChunkMUS = chunkMUS{}

var (
	stringSliceMUS  = ord.NewSliceSer[string](ord.String)
	float32SliceMUS = ord.NewSliceSer[float32](raw.Float32)
)

type idMUS struct{}

var _ mus.Serializer[ID] = idMUS{}

func (idMUS) Marshal(id ID, bs []byte) int { return varint.Uint64.Marshal(uint64(id), bs) }

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int { return varint.Uint64.Size(uint64(id)) }

func (idMUS) Skip(bs []byte) (int, error) { return varint.Uint64.Skip(bs) }

type fingerprintMUS struct{}

var _ mus.Serializer[Fingerprint] = fingerprintMUS{}

func (fingerprintMUS) Marshal(f Fingerprint, bs []byte) int {
	return varint.Uint64.Marshal(uint64(f), bs)
}

func (fingerprintMUS) Unmarshal(bs []byte) (Fingerprint, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return Fingerprint(v), n, err
}

func (fingerprintMUS) Size(f Fingerprint) int { return varint.Uint64.Size(uint64(f)) }

func (fingerprintMUS) Skip(bs []byte) (int, error) { return varint.Uint64.Skip(bs) }

// Timestamps travel as Unix microseconds, matching the index key resolution.

func marshalTime(t time.Time, bs []byte) int { return varint.Int64.Marshal(t.UnixMicro(), bs) }

func unmarshalTime(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func sizeTime(t time.Time) int { return varint.Int64.Size(t.UnixMicro()) }

type accessTripleMUS struct{}

var _ mus.Serializer[AccessTriple] = accessTripleMUS{}

func (accessTripleMUS) Marshal(t AccessTriple, bs []byte) (n int) {
	n = varint.Int.Marshal(int(t.Visibility), bs)
	n += IDMUS.Marshal(t.InstitutionID, bs[n:])
	n += varint.Int.Marshal(int(t.Approval), bs[n:])
	return n
}

func (accessTripleMUS) Unmarshal(bs []byte) (t AccessTriple, n int, err error) {
	var (
		visibility, approval int
		n1                   int
	)
	visibility, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	t.Visibility = VisibilityLevel(visibility)
	t.InstitutionID, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	approval, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	t.Approval = ApprovalState(approval)
	return
}

func (accessTripleMUS) Size(t AccessTriple) int {
	return varint.Int.Size(int(t.Visibility)) +
		IDMUS.Size(t.InstitutionID) +
		varint.Int.Size(int(t.Approval))
}

func (accessTripleMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = varint.Int.Skip(bs)
	if err != nil {
		return
	}
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	return
}

type documentMUS struct{}

var _ mus.Serializer[Document] = documentMUS{}

func (documentMUS) Marshal(d Document, bs []byte) (n int) {
	n = IDMUS.Marshal(d.Id, bs)
	n += ord.String.Marshal(d.Text, bs[n:])
	n += FingerprintMUS.Marshal(d.Fingerprint, bs[n:])
	n += AccessTripleMUS.Marshal(d.Access, bs[n:])
	n += varint.Int.Marshal(int(d.EmbeddingStatus), bs[n:])
	n += marshalTime(d.InsertedAt, bs[n:])
	n += marshalTime(d.UpdatedAt, bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (d Document, n int, err error) {
	var (
		status int
		n1     int
	)
	d.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	d.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Fingerprint, n1, err = FingerprintMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Access, n1, err = AccessTripleMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	status, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.EmbeddingStatus = EmbeddingStatus(status)
	d.InsertedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (documentMUS) Size(d Document) int {
	return IDMUS.Size(d.Id) +
		ord.String.Size(d.Text) +
		FingerprintMUS.Size(d.Fingerprint) +
		AccessTripleMUS.Size(d.Access) +
		varint.Int.Size(int(d.EmbeddingStatus)) +
		sizeTime(d.InsertedAt) +
		sizeTime(d.UpdatedAt)
}

func (documentMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	skippers := []func([]byte) (int, error){
		IDMUS.Skip,
		ord.String.Skip,
		FingerprintMUS.Skip,
		AccessTripleMUS.Skip,
		varint.Int.Skip,
		varint.Int64.Skip,
		varint.Int64.Skip,
	}
	for _, skip := range skippers {
		n1, err = skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

type documentMetadataMUS struct{}

var _ mus.Serializer[DocumentMetadata] = documentMetadataMUS{}

func (documentMetadataMUS) Marshal(m DocumentMetadata, bs []byte) (n int) {
	n = IDMUS.Marshal(m.DocumentId, bs)
	n += ord.String.Marshal(m.Title, bs[n:])
	n += ord.String.Marshal(m.Category, bs[n:])
	n += ord.String.Marshal(m.Summary, bs[n:])
	n += stringSliceMUS.Marshal(m.Keywords, bs[n:])
	n += varint.Int.Marshal(int(m.Status), bs[n:])
	n += ord.String.Marshal(m.FailReason, bs[n:])
	n += FingerprintMUS.Marshal(m.Fingerprint, bs[n:])
	n += marshalTime(m.InsertedAt, bs[n:])
	n += marshalTime(m.UpdatedAt, bs[n:])
	return n
}

func (documentMetadataMUS) Unmarshal(bs []byte) (m DocumentMetadata, n int, err error) {
	var (
		status int
		n1     int
	)
	m.DocumentId, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	m.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	m.Category, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	m.Summary, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	m.Keywords, n1, err = stringSliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	status, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	m.Status = MetadataStatus(status)
	m.FailReason, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	m.Fingerprint, n1, err = FingerprintMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	m.InsertedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return
	}
	m.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (documentMetadataMUS) Size(m DocumentMetadata) int {
	return IDMUS.Size(m.DocumentId) +
		ord.String.Size(m.Title) +
		ord.String.Size(m.Category) +
		ord.String.Size(m.Summary) +
		stringSliceMUS.Size(m.Keywords) +
		varint.Int.Size(int(m.Status)) +
		ord.String.Size(m.FailReason) +
		FingerprintMUS.Size(m.Fingerprint) +
		sizeTime(m.InsertedAt) +
		sizeTime(m.UpdatedAt)
}

func (documentMetadataMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	skippers := []func([]byte) (int, error){
		IDMUS.Skip,
		ord.String.Skip,
		ord.String.Skip,
		ord.String.Skip,
		stringSliceMUS.Skip,
		varint.Int.Skip,
		ord.String.Skip,
		FingerprintMUS.Skip,
		varint.Int64.Skip,
		varint.Int64.Skip,
	}
	for _, skip := range skippers {
		n1, err = skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

type chunkMUS struct{}

var _ mus.Serializer[Chunk] = chunkMUS{}

func (chunkMUS) Marshal(c Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(c.DocumentId, bs)
	n += varint.Int.Marshal(c.Seq, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	n += float32SliceMUS.Marshal(c.Vector, bs[n:])
	n += AccessTripleMUS.Marshal(c.Access, bs[n:])
	n += FingerprintMUS.Marshal(c.Fingerprint, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	var n1 int
	c.DocumentId, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	c.Seq, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Vector, n1, err = float32SliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Access, n1, err = AccessTripleMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Fingerprint, n1, err = FingerprintMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (chunkMUS) Size(c Chunk) int {
	return IDMUS.Size(c.DocumentId) +
		varint.Int.Size(c.Seq) +
		ord.String.Size(c.Text) +
		float32SliceMUS.Size(c.Vector) +
		AccessTripleMUS.Size(c.Access) +
		FingerprintMUS.Size(c.Fingerprint)
}

func (chunkMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	skippers := []func([]byte) (int, error){
		IDMUS.Skip,
		varint.Int.Skip,
		ord.String.Skip,
		float32SliceMUS.Skip,
		AccessTripleMUS.Skip,
		FingerprintMUS.Skip,
	}
	for _, skip := range skippers {
		n1, err = skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

package integrity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumerian-dev/sumerian/internal/integrity"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

func sampleEntry() *model.AuditEntry {
	return &model.AuditEntry{
		Timestamp:  "2026-10-15T10:00:00.000Z",
		Action:     model.ActionWrite,
		Actor:      model.ActorAgent,
		Target:     "/proj/a.txt",
		Reversible: true,
		Result:     model.ResultSuccess,
	}
}

func TestComputeContentHash_KnownValue(t *testing.T) {
	// sha256 of the empty input
	assert.Equal(t,
		model.HashValue("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"),
		integrity.ComputeContentHash(nil))
}

func TestComputeRecordHash_Deterministic(t *testing.T) {
	h1, err := integrity.ComputeRecordHash(sampleEntry())
	require.NoError(t, err)
	h2, err := integrity.ComputeRecordHash(sampleEntry())
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, string(h1), 64)
}

func TestComputeRecordHash_ExcludesRecordHash(t *testing.T) {
	e1 := sampleEntry()
	e1.RecordHash = "aaa"
	e2 := sampleEntry()
	e2.RecordHash = "bbb"

	h1, _ := integrity.ComputeRecordHash(e1)
	h2, _ := integrity.ComputeRecordHash(e2)
	assert.Equal(t, h1, h2, "record hash must not cover itself")
	assert.Equal(t, model.HashValue("aaa"), e1.RecordHash, "input must not be mutated")
}

func TestComputeRecordHash_CoversPrevHash(t *testing.T) {
	e1 := sampleEntry()
	e2 := sampleEntry()
	e2.PrevHash = "previous"

	h1, _ := integrity.ComputeRecordHash(e1)
	h2, _ := integrity.ComputeRecordHash(e2)
	assert.NotEqual(t, h1, h2)
}

func TestComputeRecordHash_DifferentContent(t *testing.T) {
	e1 := sampleEntry()
	e2 := sampleEntry()
	e2.Result = model.ResultBlocked

	h1, _ := integrity.ComputeRecordHash(e1)
	h2, _ := integrity.ComputeRecordHash(e2)
	assert.NotEqual(t, h1, h2)
}

package projector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/strata/internal/testutil"
	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder/tag"
)

func decode(t *testing.T, b *testutil.Bin, n int) []tag.Tag {
	t.Helper()
	tags, err := tag.DecodeList(bytesource.FromBytes(b.Bytes()), n, tag.Options{})
	require.NoError(t, err)
	return tags
}

func TestProject_AlwaysHasAccumulators(t *testing.T) {
	p := Project(nil, nil)
	assert.Equal(t, core.Int(0), p.Metadata[KeyTotalGapSize])
	assert.Equal(t, core.Int(0), p.Metadata[KeySize])
	assert.Equal(t, core.Int(0), p.Metadata[KeyUploaded])
	assert.NotContains(t, p.Metadata, KeyGaps)
}

func TestProject_SplitCountersOrderIndependent(t *testing.T) {
	loFirst := testutil.NewBin().
		U32Tag(tag.IDFileSize, 0x10).U32Tag(tag.IDFileSizeHi, 0x2).
		U32Tag(tag.IDAllTimeTransferred, 7).U32Tag(tag.IDAllTimeTransHi, 1)
	hiFirst := testutil.NewBin().
		U32Tag(tag.IDAllTimeTransHi, 1).U32Tag(tag.IDFileSizeHi, 0x2).
		U32Tag(tag.IDAllTimeTransferred, 7).U32Tag(tag.IDFileSize, 0x10)

	a := Project(decode(t, loFirst, 4), nil)
	b := Project(decode(t, hiFirst, 4), nil)

	assert.Equal(t, int64(0x2_0000_0010), a.Metadata.Int(KeySize))
	assert.Equal(t, int64(1<<32|7), a.Metadata.Int(KeyUploaded))
	assert.Equal(t, a.Metadata, b.Metadata)
}

func TestProject_Gaps(t *testing.T) {
	b := testutil.NewBin().
		GapTag(tag.GapStartMarker, 0, 300).
		StringTag(tag.IDFileName, "x").
		GapTag(tag.GapStartMarker, 1, 100).
		GapTag(tag.GapEndMarker, 1, 150).
		GapTag(tag.GapEndMarker, 0, 400)

	p := Project(decode(t, b, 5), nil)
	assert.Equal(t, []tag.Gap{{Start: 100, End: 150}, {Start: 300, End: 400}}, p.Gaps)
	assert.Equal(t, int64(150), p.Metadata.Int(KeyTotalGapSize))
	assert.Equal(t, "x", p.Metadata.String("name"))
	require.Len(t, p.Metadata[KeyGaps].AsList(), 2)
	first, _ := p.Metadata[KeyGaps].AsList()[0].Get("start")
	assert.Equal(t, int64(100), first.AsInt())
}

func TestProject_SpecialIDs(t *testing.T) {
	b := testutil.NewBin().
		U32Tag(tag.IDFlags, 0).
		IDTag(testutil.TypeBlob, tag.IDAICHHashSet).U32(2).Raw(1, 2).
		U32Tag(0x99, 5).
		NamedTag(testutil.TypeUint32, []byte("custom"), testutil.LE32(1)...).
		U32Tag(tag.IDLastShared, 1600000000).
		IDTag(testutil.TypeHash, tag.IDFileHash, testutil.Hash(0xab)...)

	p := Project(decode(t, b, 6), nil)
	assert.True(t, p.Metadata[KeyFlags].AsBool(), "flags follow the raw value, not the number")
	assert.Equal(t, time.Unix(1600000000, 0).UTC(), p.Metadata.Time("last_shared"))
	assert.Equal(t, "ABABABABABABABABABABABABABABABAB", p.Metadata.String("hash"))
	assert.NotContains(t, p.Metadata, "custom")
	// flags, last_shared, hash and the accumulators
	assert.Len(t, p.Metadata, 6)
}

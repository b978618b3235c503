package tag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/strata/internal/testutil"
	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
)

func TestDecode_ConsumesExactlyItsBytes(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *testutil.Bin)
		typ   Type
		want  core.Value
	}{
		{"hash", func(b *testutil.Bin) { b.IDTag(testutil.TypeHash, 0x28, testutil.Hash(0xab)...) }, TypeHash, core.String("ABABABABABABABABABABABABABABABAB")},
		{"string", func(b *testutil.Bin) { b.StringTag(0x01, "movie.avi") }, TypeString, core.String("movie.avi")},
		{"uint32", func(b *testutil.Bin) { b.U32Tag(0x15, 7) }, TypeUint32, core.Int(7)},
		{"bool", func(b *testutil.Bin) { b.IDTag(testutil.TypeBool, 0x40, 1) }, TypeBool, core.Bool(true)},
		{"bool false", func(b *testutil.Bin) { b.IDTag(testutil.TypeBool, 0x40, 2) }, TypeBool, core.Bool(false)},
		{"boolarray", func(b *testutil.Bin) { b.IDTag(testutil.TypeBoolArr, 0x41).U16(9).Raw(0xff, 0x01) }, TypeBoolArray, core.Bytes([]byte{0xff, 0x01})},
		{"blob", func(b *testutil.Bin) { b.IDTag(testutil.TypeBlob, 0x42).U32(3).Raw(1, 2, 3) }, TypeBlob, core.Bytes([]byte{1, 2, 3})},
		{"uint16", func(b *testutil.Bin) { b.IDTag(testutil.TypeUint16, 0x43, 0x34, 0x12) }, TypeUint16, core.Int(0x1234)},
		{"uint8", func(b *testutil.Bin) { b.IDTag(testutil.TypeUint8, 0x44, 0x7f) }, TypeUint8, core.Int(0x7f)},
		{"uint64", func(b *testutil.Bin) { b.U64Tag(0x02, 1<<40) }, TypeUint64, core.Int(1 << 40)},
		{"str1", func(b *testutil.Bin) { b.IDTag(testutil.TypeStr1, 0x03, 'x') }, TypeString, core.String("x")},
		{"str22", func(b *testutil.Bin) { b.IDTag(0x26, 0x03, []byte("abcdefghijklmnopqrstuv")...) }, TypeString, core.String("abcdefghijklmnopqrstuv")},
		{"long id form", func(b *testutil.Bin) { b.LongIDTag(testutil.TypeUint8, 0x44, 3) }, TypeUint8, core.Int(3)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := testutil.NewBin()
			tc.build(b)
			end := b.Len()
			b.Raw(0xEE, 0xEE) // trailing bytes of the next record

			r := bytesource.FromBytes(b.Bytes())
			tg, err := Decode(r, Options{})
			require.NoError(t, err)
			assert.Equal(t, int64(end), r.Tell())
			assert.Equal(t, tc.typ, tg.Type)
			assert.True(t, tc.want.Equal(tg.Value), "got %#v", tg.Value)
			assert.False(t, tg.Named())
		})
	}
}

func TestDecode_LastSeenIsDatetime(t *testing.T) {
	data := testutil.NewBin().U8(0x83).U8(IDLastSeenComplete).U32(1700000000).Bytes()

	tg, err := Decode(bytesource.FromBytes(data), Options{})
	require.NoError(t, err)
	assert.Equal(t, IDLastSeenComplete, tg.ID)
	assert.Equal(t, core.KindTime, tg.Value.Kind())
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), tg.Value.AsTime())
}

func TestDecode_Durations(t *testing.T) {
	data := testutil.NewBin().U32Tag(IDMediaLength, 3725).U32Tag(IDDLActiveTime, 90000).Bytes()
	r := bytesource.FromBytes(data)

	tags, err := DecodeList(r, 2, Options{})
	require.NoError(t, err)
	assert.Equal(t, "01:02:05", tags[0].Value.AsString())
	assert.Equal(t, "25:00:00", tags[1].Value.AsString())
}

func TestDecode_NamedTags(t *testing.T) {
	data := testutil.NewBin().NamedTag(testutil.TypeUint32, []byte("Artist"), testutil.LE32(5)...).Bytes()

	tg, err := Decode(bytesource.FromBytes(data), Options{})
	require.NoError(t, err)
	assert.True(t, tg.Named())
	assert.Equal(t, "Artist", string(tg.Name))
	assert.Equal(t, `"Artist"`, tg.Key())
	assert.Equal(t, int64(5), tg.Value.AsInt())
}

func TestDecode_UnsupportedTypes(t *testing.T) {
	for _, typ := range []uint8{testutil.TypeFloat32, testutil.TypeBsob, 0x30} {
		t.Run(Type(typ).String(), func(t *testing.T) {
			data := testutil.NewBin().IDTag(typ, 0x60).U32Tag(0x15, 9).Bytes()

			r := bytesource.FromBytes(data)
			tg, err := Decode(r, Options{})
			require.NoError(t, err)
			assert.True(t, tg.Value.IsNull())
			assert.Equal(t, int64(2), r.Tell(), "compat mode consumes no value bytes")

			next, err := Decode(r, Options{})
			require.NoError(t, err)
			assert.Equal(t, int64(9), next.Value.AsInt())

			_, err = Decode(bytesource.FromBytes(data), Options{Policy: Strict})
			assert.True(t, core.UnsupportedTagType.Has(err))
		})
	}
}

func TestDecode_BoolArraySkip(t *testing.T) {
	build := func() []byte {
		return testutil.NewBin().IDTag(testutil.TypeBoolArr, 0x41).U16(16).Repeat(0xAA, 3).Bytes()
	}

	r := bytesource.FromBytes(build())
	_, err := Decode(r, Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(2+2+2), r.Tell())

	r = bytesource.FromBytes(build())
	_, err = Decode(r, Options{LegacyBoolArray: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2+2+3), r.Tell())
}

func TestDecode_Truncated(t *testing.T) {
	full := testutil.NewBin().StringTag(0x01, "truncated").Bytes()
	for n := 0; n < len(full); n++ {
		_, err := Decode(bytesource.FromBytes(full[:n]), Options{})
		assert.True(t, core.TruncatedInput.Has(err), "prefix of %d bytes", n)
	}

	blob := testutil.NewBin().IDTag(testutil.TypeBlob, 0x42).U32(1 << 30).Bytes()
	_, err := Decode(bytesource.FromBytes(blob), Options{})
	assert.True(t, core.TruncatedInput.Has(err))
}

func TestDecodeList_Deterministic(t *testing.T) {
	data := testutil.NewBin().
		StringTag(IDFileName, "a.iso").
		U64Tag(IDFileSize, 1<<33).
		U32Tag(IDLastShared, 1600000000).
		GapTag(GapStartMarker, 0, 10).
		Bytes()

	first, err := DecodeList(bytesource.FromBytes(data), 4, Options{})
	require.NoError(t, err)
	second, err := DecodeList(bytesource.FromBytes(data), 4, Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatDuration(0))
	assert.Equal(t, "00:01:01", FormatDuration(61))
	assert.Equal(t, "100:00:00", FormatDuration(360000))
}

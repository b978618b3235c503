package bencode

import (
	"crypto/sha1"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
)

func src(s string) *bytesource.Reader { return bytesource.FromBytes([]byte(s)) }

func TestParse_Generic(t *testing.T) {
	doc, err := Parse([]byte("d3:agei-42e4:listl1:ai1ee4:name5:hello3:rawi0ee"))
	require.NoError(t, err)

	m := doc.Root.AsMap()
	assert.Equal(t, int64(-42), m["age"].AsInt())
	assert.Equal(t, "hello", m["name"].AsString())
	require.Len(t, m["list"].AsList(), 2)
	assert.Equal(t, "l1:ai1ee", string(doc.Raw["list"]))
	assert.Equal(t, "5:hello", string(doc.Raw["name"]))

	bin, err := Decode([]byte("2:\xff\xfe"))
	require.NoError(t, err)
	assert.Equal(t, core.KindBytes, bin.Kind())
	assert.Equal(t, "FFFE", bin.AsHex())
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{
		"",
		"d",
		"i12",
		"ixe",
		"5:abc",
		"l1:a",
		"x",
		"d3:keyi1ee ",
		"d1:ai1e",
		"i+5e",
		"i-0e",
		"i03e",
		"i-e",
		"ie",
		"03:abc",
	} {
		_, err := Decode([]byte(in))
		assert.Error(t, err, "%q", in)
	}

	deep := ""
	for i := 0; i <= maxDepth+1; i++ {
		deep += "l"
	}
	_, err := Decode([]byte(deep))
	assert.True(t, core.FormatMismatch.Has(err))
}

func TestResume_AliasIndependentOfOrder(t *testing.T) {
	want := time.Unix(1690000000, 0).UTC()
	for _, data := range []string{
		"d9:a.torrentd8:added_oni0e10:added_timei1690000000eee",
		"d9:a.torrentd10:added_timei1690000000e8:added_oni0eee",
	} {
		res, ok, err := DecodeResume(src(data), nil)
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, res.Torrents, 1)
		assert.Equal(t, want, res.Torrents[0].Added, data)
		assert.Equal(t, "a", res.Torrents[0].Name)
	}
}

func TestResume_Fields(t *testing.T) {
	hash := "\x01\x02\x03\x04\x05\x06\x07\x08\x09\x0a\x0b\x0c\x0d\x0e\x0f\x10\x11\x12\x13\x14"
	data := "d" +
		"10:.fileguard5:abcde" +
		"14:debian.torrentd" +
		"7:caption6:Debian" +
		"12:completed_oni1690001000e" +
		"10:downloadedi0e" +
		"4:info20:" + hash +
		"4:path12:C:\\dl\\debian" +
		"7:runtimei3600e" +
		"8:seedtimei60e" +
		"16:total_downloadedi2048e" +
		"8:trackersl17:udp://tracker/one17:udp://tracker/onee" +
		"8:uploadedi512e" +
		"e" +
		"e"

	res, ok, err := DecodeResume(src(data), nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, res.Torrents, 1)

	tr := res.Torrents[0]
	assert.Equal(t, "debian.torrent", tr.Key)
	assert.Equal(t, "Debian", tr.Name)
	assert.Equal(t, `C:\dl\debian`, tr.Path)
	assert.Equal(t, "0102030405060708090A0B0C0D0E0F1011121314", tr.InfoHash)
	assert.Equal(t, int64(2048), tr.Downloaded)
	assert.Equal(t, int64(512), tr.Uploaded)
	assert.Equal(t, []string{"udp://tracker/one"}, tr.Trackers)

	md := tr.Metadata()
	assert.Equal(t, time.Unix(1690001000, 0).UTC(), md.Time("completed"))
	assert.Equal(t, int64(3600), md.Int("runtime"))
}

func TestResume_RequiresTorrentEntries(t *testing.T) {
	assert.False(t, IsResume(src("d3:cid4:abcde"), nil))
	assert.False(t, IsResume(src("li1ee"), nil))
}

func TestSettings(t *testing.T) {
	data := "d7:born_oni1600000000e3:cid4:ABCD19:dir_active_download6:C:\\dl\\14:webui.username5:alicee"
	s, ok, err := DecodeSettings(src(data), nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ABCD", s.ClientID)
	assert.Equal(t, time.Unix(1600000000, 0).UTC(), s.BornOn)
	assert.Equal(t, "alice", s.Username)
	assert.Equal(t, `C:\dl\`, s.DownloadDir)

	assert.False(t, IsSettings(src("d3:cid4:ABCD9:x.torrentdee"), nil))
	assert.False(t, IsSettings(src("d4:name1:xe"), nil))

	bin, ok, err := DecodeSettings(src("d3:cid2:\xff\x01e"), nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "FF01", bin.ClientID)
}

func TestMetainfo_InfoHash(t *testing.T) {
	info := "d5:filesld6:lengthi10e4:pathl3:dir5:a.txteed6:lengthi5e4:pathl5:b.txteee4:name4:pack12:piece lengthi16384e7:privatei1ee"
	data := "d8:announce17:http://t/announce13:creation datei1600000000e4:info" + info + "e"

	mi, ok, err := DecodeMetainfo(src(data), nil)
	require.NoError(t, err)
	require.True(t, ok)

	sum := sha1.Sum([]byte(info))
	assert.Equal(t, bytesource.Hex(sum[:]), mi.InfoHash)
	assert.Equal(t, "pack", mi.Name)
	assert.Equal(t, int64(15), mi.Length)
	assert.Equal(t, []File{{Path: "dir/a.txt", Length: 10}, {Path: "b.txt", Length: 5}}, mi.Files)
	assert.True(t, mi.Private)
	assert.Equal(t, []string{"http://t/announce"}, mi.Announce)
	assert.Equal(t, time.Unix(1600000000, 0).UTC(), mi.CreationDate)

	assert.False(t, IsMetainfo(src("d4:infoi1ee"), nil))
}

func TestFastResume(t *testing.T) {
	data := "d11:file-format22:libtorrent resume file8:qBt-name3:iso9:save_path5:/data14:total_uploadedi7ee"
	tr, ok, err := DecodeFastResume(src(data), nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "iso", tr.Name)
	assert.Equal(t, "/data", tr.Path)
	assert.Equal(t, int64(7), tr.Uploaded)

	_, ok, err = DecodeFastResume(src("d11:file-format5:othere"), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "torrents.db")
	conn, err := sqlite.OpenConn(path)
	require.NoError(t, err)
	err = sqlitex.ExecuteScript(conn, `
		CREATE TABLE torrents (
			id INTEGER PRIMARY KEY,
			torrent_id TEXT NOT NULL,
			name TEXT,
			resume_data BLOB
		);
	`, nil)
	require.NoError(t, err)
	rows := []struct {
		id, name string
		resume   []byte
	}{
		{"aabbccddeeff00112233445566778899aabbccdd", "Ubuntu", []byte("d10:added_timei1690000000e9:save_path5:/isose")},
		{"00112233445566778899aabbccddeeff00112233", "", []byte("not bencode")},
	}
	for _, row := range rows {
		err = sqlitex.Execute(conn, "INSERT INTO torrents (torrent_id, name, resume_data) VALUES (?, ?, ?)", &sqlitex.ExecOptions{
			Args: []any{row.id, row.name, row.resume},
		})
		require.NoError(t, err)
	}
	require.NoError(t, conn.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	db, ok, err := DecodeDatabase(bytesource.FromBytes(data), nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, db.Torrents, 1)
	assert.Equal(t, "Ubuntu", db.Torrents[0].Name)
	assert.Equal(t, "/isos", db.Torrents[0].Path)
	assert.Equal(t, "AABBCCDDEEFF00112233445566778899AABBCCDD", db.Torrents[0].InfoHash)
	assert.Equal(t, time.Unix(1690000000, 0).UTC(), db.Torrents[0].Added)

	assert.False(t, IsDatabase(src("SQLite format 2\x00........"), nil))
}

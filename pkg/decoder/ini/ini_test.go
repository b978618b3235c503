package ini

import (
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/strata/internal/testutil"
	"github.com/aretw0/strata/pkg/bytesource"
)

const sample = "[eMule]\r\n" +
	"AppVersion=0.50a\r\n" +
	"Nick=http://www.emule-project.net\r\n" +
	"IncomingDir=C:\\Users\\bob\\Downloads\\eMule\\Incoming\r\n" +
	"TempDir=C:\\eMule\\Temp|D:\\Temp\r\n" +
	"[Statistics]\r\n" +
	"TotalDownloadedBytes=1024\r\n"

func TestDecode(t *testing.T) {
	p, ok, err := Decode(bytesource.FromBytes([]byte(sample)), nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "http://www.emule-project.net", p.Nick)
	assert.Equal(t, "0.50a", p.AppVersion)
	assert.Equal(t, `C:\Users\bob\Downloads\eMule\Incoming`, p.IncomingDir)
	assert.Equal(t, []string{`C:\eMule\Temp`, `D:\Temp`}, p.TempDirs)
	assert.Equal(t, "0.50a", p.Metadata().String("app_version"))
}

func TestDecode_UTF16(t *testing.T) {
	b := testutil.NewBin().Raw(0xFF, 0xFE)
	for _, u := range utf16.Encode([]rune(sample)) {
		b.U16(u)
	}
	p, ok, err := Decode(bytesource.FromBytes(b.Bytes()), nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0.50a", p.AppVersion)
}

func TestDecode_RequiresSection(t *testing.T) {
	assert.False(t, IsInstance(bytesource.FromBytes([]byte("[Other]\nNick=x\n")), nil))
	assert.False(t, IsInstance(bytesource.FromBytes([]byte{0x0E, 0x00, 0x00, 0x00, 0x00}), nil))
}

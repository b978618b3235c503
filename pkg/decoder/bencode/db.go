package bencode

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/zeebo/errs"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder"
)

var sqliteMagic = []byte("SQLite format 3\x00")

const torrentsQuery = `SELECT torrent_id, name, resume_data FROM torrents`

// Database is a decoded qBittorrent torrents.db.
type Database struct {
	Torrents []Torrent
}

// DecodeDatabase decodes a torrents.db file. The database is copied to a
// temporary file so that sources which are not plain files can be opened,
// and the copy is opened writable so WAL-mode databases need no sidecars.
// Rows whose resume data does not decode are skipped.
func DecodeDatabase(r *bytesource.Reader, log *slog.Logger) (*Database, bool, error) {
	log = decoder.Logger(log)
	var out Database
	ok, err := decoder.Run(r, log, FormatDatabase, false, func() error {
		magic, err := r.Peek(len(sqliteMagic))
		if err != nil {
			return err
		}
		if !bytes.Equal(magic, sqliteMagic) {
			return core.FormatMismatch.New("not an sqlite database")
		}
		data, err := r.ReadAll()
		if err != nil {
			return err
		}

		path, cleanup, err := spill(data)
		if err != nil {
			return err
		}
		defer cleanup()

		conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite)
		if err != nil {
			return core.FormatMismatch.Wrap(err)
		}
		defer func() { _ = conn.Close() }()

		err = sqlitex.Execute(conn, torrentsQuery, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id := stmt.ColumnText(0)
				name := stmt.ColumnText(1)
				blob := make([]byte, stmt.ColumnLen(2))
				stmt.ColumnBytes(2, blob)

				dict, err := Decode(blob)
				if err != nil || dict.Kind() != core.KindMap {
					log.Debug("skipping torrent row", "torrent_id", id, "error", err)
					return nil
				}
				t := NewTorrent(id, dict)
				if name != "" {
					t.Name = name
				}
				if t.InfoHash == "" {
					t.InfoHash = infoHash(core.String(id))
				}
				out.Torrents = append(out.Torrents, t)
				return nil
			},
		})
		if err != nil {
			return core.FormatMismatch.Wrap(fmt.Errorf("query torrents: %w", err))
		}
		return nil
	})
	if !ok {
		return nil, false, err
	}
	return &out, true, nil
}

// IsDatabase reports whether r holds a torrents.db file.
func IsDatabase(r *bytesource.Reader, log *slog.Logger) bool {
	_, ok, _ := DecodeDatabase(r, log)
	return ok
}

func spill(data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "strata-torrents-*.db")
	if err != nil {
		return "", nil, core.IOError.Wrap(err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	_, werr := f.Write(data)
	if err := errs.Combine(werr, f.Close()); err != nil {
		cleanup()
		return "", nil, core.IOError.Wrap(err)
	}
	return f.Name(), cleanup, nil
}

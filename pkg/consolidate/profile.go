package consolidate

import "github.com/aretw0/strata/pkg/core"

// Profile is the per-folder view of one client installation. Its fields
// enrich every evidence record found in the same folder.
type Profile struct {
	App         string
	AppVersion  string
	Username    string
	UserHash    string
	KadID       string
	ClientID    string
	IncomingDir string
	TempDirs    []string
}

// Metadata returns the attributes propagated to evidence records.
func (p *Profile) Metadata() core.Metadata {
	md := core.Metadata{}
	md.SetIfPresent("app", core.String(p.App))
	md.SetIfPresent("app_version", core.String(p.AppVersion))
	md.SetIfPresent("username", core.String(p.Username))
	md.SetIfPresent("user_hash", core.String(p.UserHash))
	md.SetIfPresent("kad_id", core.String(p.KadID))
	return md
}

// fieldAuthority records who set one profile field.
type fieldAuthority struct {
	set     bool
	deleted bool
}

// profileEntity is assembled from several artifacts of one folder, each
// supplying a few fields, so precedence is tracked per field: a field's
// first supplier wins unless it was deleted and a live one shows up.
type profileEntity struct {
	Profile
	provenance
	fields map[string]fieldAuthority
}

func (e *profileEntity) claim(field string, present, deleted bool) bool {
	if !present {
		return false
	}
	if e.fields == nil {
		e.fields = make(map[string]fieldAuthority)
	}
	a := e.fields[field]
	overwrite := !a.set || (a.deleted && !deleted)
	if overwrite {
		e.fields[field] = fieldAuthority{set: true, deleted: deleted}
	}
	return overwrite
}

func (e *profileEntity) merge(deleted bool, in Profile) {
	p := &e.Profile
	p.App = Pick(e.claim("app", in.App != "", deleted), p.App, in.App)
	p.AppVersion = Pick(e.claim("app_version", in.AppVersion != "", deleted), p.AppVersion, in.AppVersion)
	p.Username = Pick(e.claim("username", in.Username != "", deleted), p.Username, in.Username)
	p.UserHash = Pick(e.claim("user_hash", in.UserHash != "", deleted), p.UserHash, in.UserHash)
	p.KadID = Pick(e.claim("kad_id", in.KadID != "", deleted), p.KadID, in.KadID)
	p.ClientID = Pick(e.claim("client_id", in.ClientID != "", deleted), p.ClientID, in.ClientID)
	p.IncomingDir = Pick(e.claim("incoming_dir", in.IncomingDir != "", deleted), p.IncomingDir, in.IncomingDir)
	p.TempDirs = PickSlice(e.claim("temp_dirs", len(in.TempDirs) > 0, deleted), p.TempDirs, in.TempDirs)
}

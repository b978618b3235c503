package core

// EvidenceKind tags an emitted evidence record.
type EvidenceKind string

const (
	KindLocalFile  EvidenceKind = "local-file"
	KindRemoteFile EvidenceKind = "remote-party-shared-file"
	KindAccount    EvidenceKind = "user-account"
	KindAutofill   EvidenceKind = "autofill"
)

// Evidence is a canonical, deduplicated fact produced by consolidating one
// or more decoded observations.
type Evidence struct {
	ID         string
	Kind       EvidenceKind
	Attributes Metadata
	Sources    []Source
	// Winner indexes the source in Sources whose data the attributes carry.
	Winner int
}

// WinningSource returns the source the attributes were taken from.
func (e Evidence) WinningSource() (Source, bool) {
	if e.Winner < 0 || e.Winner >= len(e.Sources) {
		return Source{}, false
	}
	return e.Sources[e.Winner], true
}

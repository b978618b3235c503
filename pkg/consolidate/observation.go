package consolidate

import (
	"strings"

	"github.com/aretw0/strata/pkg/core"
)

// Observation is one decoded fact about an entity, as seen in one or more
// source files.
type Observation struct {
	Kind core.EvidenceKind

	// Folder is the profile folder the fact was found in. Entities never
	// span folders.
	Folder string

	// Identity holds the natural key parts after the folder:
	//	local file:  name
	//	remote file: hash, endpoint, name
	//	account:     network, id
	//	autofill:    field, value
	Identity []string

	Attributes core.Metadata
	Sources    []core.Source
}

// Deleted reports whether any contributing source is marked deleted.
func (o Observation) Deleted() bool {
	for _, s := range o.Sources {
		if s.Deleted {
			return true
		}
	}
	return false
}

// LocalFile builds a local file observation.
func LocalFile(folder, name string, attrs core.Metadata, sources ...core.Source) Observation {
	return Observation{
		Kind:       core.KindLocalFile,
		Folder:     folder,
		Identity:   []string{name},
		Attributes: attrs,
		Sources:    sources,
	}
}

// RemoteFile builds an observation of a file shared by a remote peer.
func RemoteFile(folder, hash, endpoint, name string, attrs core.Metadata, sources ...core.Source) Observation {
	return Observation{
		Kind:       core.KindRemoteFile,
		Folder:     folder,
		Identity:   []string{strings.ToUpper(hash), endpoint, name},
		Attributes: attrs,
		Sources:    sources,
	}
}

// Account builds a user account observation.
func Account(folder, network, id string, attrs core.Metadata, sources ...core.Source) Observation {
	return Observation{
		Kind:       core.KindAccount,
		Folder:     folder,
		Identity:   []string{network, id},
		Attributes: attrs,
		Sources:    sources,
	}
}

// Autofill builds an observation of a remembered form entry.
func Autofill(folder, field, value string, attrs core.Metadata, sources ...core.Source) Observation {
	return Observation{
		Kind:       core.KindAutofill,
		Folder:     folder,
		Identity:   []string{field, value},
		Attributes: attrs,
		Sources:    sources,
	}
}

func (o Observation) key() string {
	return string(o.Kind) + "\x00" + o.Folder + "\x00" + strings.Join(o.Identity, "\x00")
}

package consolidate

import "github.com/aretw0/strata/pkg/core"

// Pick selects the value a field keeps after a merge: incoming when
// overwrite is permitted, current otherwise.
func Pick[T any](overwrite bool, current, incoming T) T {
	if overwrite {
		return incoming
	}
	return current
}

// PickSlice is Pick for collections. Collections are replaced wholesale,
// never unioned.
func PickSlice[T any](overwrite bool, current, incoming []T) []T {
	if overwrite {
		return append([]T(nil), incoming...)
	}
	return current
}

// PickMetadata is Pick for an attribute set. The winner's attributes are
// taken as a whole so that a loser never contributes fields the winner
// lacks.
func PickMetadata(overwrite bool, current, incoming core.Metadata) core.Metadata {
	if !overwrite {
		return current
	}
	out := incoming.Clone()
	if out == nil {
		out = core.Metadata{}
	}
	return out
}

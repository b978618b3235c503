// Package strata is the composition root for the strata evidence engine.
//
// Strata walks a folder exported from a suspect machine, recognizes the
// state files left behind by eMule, Kademlia, uTorrent and qBittorrent,
// decodes them, and consolidates what they say into deduplicated evidence
// records (local files, files shared by remote peers, user accounts and
// autofill entries), each carrying the list of artifacts it came from.
//
// Features:
//
//   - **Signature based detection**: every file is tried against a fixed,
//     ordered set of decoders. File names are never trusted.
//   - **All-or-nothing decoding**: a structure either decodes completely or
//     the file is reported as not being an instance of the format.
//   - **Provenance**: deleted sources never overwrite live ones, and every
//     record lists its sources.
//   - **Pluggable sinks**: files (JSON, YAML, CBOR) or a SQLite database
//     via `core.Sink`.
//   - **Incremental**: a scan index skips unchanged unparseable files.
//
// Usage:
//
//	eng, err := strata.New("./export",
//		strata.WithOutput("./case"),
//		strata.WithDeletedPatterns("**/$Recycle.Bin/**"),
//		strata.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	defer eng.Close()
//
//	report, err := eng.Run(ctx)
package strata

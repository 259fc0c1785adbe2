// Package bids models the file collection under curation: structured BIDS
// filenames and their entities, per-file acquisition metadata, companion
// files, and the cross-file reference graph built from fieldmap IntendedFor
// entries. The JSON manifest is the boundary to the external metadata reader;
// this package never opens imaging files or sidecars itself.
package bids

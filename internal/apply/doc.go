// Package apply executes batches of curation edits (rename, merge, delete)
// against a dataset as one all-or-nothing transaction, staging every touched
// file so a mid-commit failure can be rolled back.
package apply

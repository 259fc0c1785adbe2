// Package preflight verifies the environment before curation work starts:
// directory access, staging free space, and run-history database
// reachability. Checks report results instead of failing hard so the status
// command can show everything at once.
package preflight

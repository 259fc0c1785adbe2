// Package classify clusters the files of each entity set into parameter
// groups under the field catalog's tolerances, ranks groups by membership,
// diffs variants against the dominant group, and derives advisory rename
// suggestions. Clustering builds true equivalence classes with union-find;
// components held together only by tolerance chaining are flagged for
// operator review instead of being silently accepted.
package classify

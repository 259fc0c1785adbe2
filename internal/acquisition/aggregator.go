package acquisition

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"tidybids/internal/bids"
	"tidybids/internal/classify"
)

// Session identifies one (subject, session) scanning unit. Session is empty
// for single-session datasets.
type Session struct {
	Subject string
	Session string
}

func (s Session) String() string {
	if s.Session == "" {
		return "sub-" + s.Subject
	}
	return "sub-" + s.Subject + "_ses-" + s.Session
}

// Group is a set of sessions sharing an identical signature: the set of
// (entity set, parameter group rank) pairs present in the session.
type Group struct {
	ID        int
	Signature []string
	Sessions  []Session
}

// SignatureKey flattens a signature for map lookups and persistence.
func SignatureKey(signature []string) string {
	return strings.Join(signature, ";")
}

// Build aggregates the per-file assignments of a classification pass into
// acquisition groups. Ids are assigned in order of first signature discovery
// over sessions in natural order (sub-2 before sub-10), so the numbering is
// reproducible for a given collection regardless of processing order.
func Build(collection *bids.Collection, summary *classify.Summary) []Group {
	signatures := make(map[Session]map[string]struct{})
	for _, record := range collection.Records() {
		assignment, ok := summary.AssignmentFor(record.ID)
		if !ok {
			continue
		}
		session := Session{Subject: record.Subject(), Session: record.Session()}
		if signatures[session] == nil {
			signatures[session] = make(map[string]struct{})
		}
		pair := fmt.Sprintf("%s|%d", assignment.EntityKey, assignment.Rank)
		signatures[session][pair] = struct{}{}
	}

	sessions := make([]Session, 0, len(signatures))
	for session := range signatures {
		sessions = append(sessions, session)
	}
	sortSessionsNatural(sessions)

	byKey := make(map[string]*Group)
	var groups []*Group
	for _, session := range sessions {
		signature := make([]string, 0, len(signatures[session]))
		for pair := range signatures[session] {
			signature = append(signature, pair)
		}
		sort.Strings(signature)
		key := SignatureKey(signature)
		group, ok := byKey[key]
		if !ok {
			group = &Group{ID: len(groups) + 1, Signature: signature}
			byKey[key] = group
			groups = append(groups, group)
		}
		group.Sessions = append(group.Sessions, session)
	}

	out := make([]Group, 0, len(groups))
	for _, group := range groups {
		out = append(out, *group)
	}
	return out
}

// Remap replaces discovery-order ids with a previously persisted numbering,
// looked up by signature. Signatures absent from the prior numbering get
// fresh ids above the prior maximum, so established group numbers never move
// between runs.
func Remap(groups []Group, prior map[string]int) []Group {
	next := 0
	for _, id := range prior {
		if id > next {
			next = id
		}
	}
	out := append([]Group(nil), groups...)
	for i := range out {
		if id, ok := prior[SignatureKey(out[i].Signature)]; ok {
			out[i].ID = id
			continue
		}
		next++
		out[i].ID = next
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// sortSessionsNatural orders sessions with numeric-aware collation so that
// sub-2 sorts before sub-10.
func sortSessionsNatural(sessions []Session) {
	collator := collate.New(language.Und, collate.Numeric)
	sort.Slice(sessions, func(i, j int) bool {
		if cmp := collator.CompareString(sessions[i].Subject, sessions[j].Subject); cmp != 0 {
			return cmp < 0
		}
		return collator.CompareString(sessions[i].Session, sessions[j].Session) < 0
	})
}

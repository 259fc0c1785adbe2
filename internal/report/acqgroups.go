package report

import (
	"strconv"
	"strings"

	"tidybids/internal/acquisition"
)

// AcqGroups lists acquisition groups one row per member session, groups in id
// order, sessions in the natural order Build assigned them.
func AcqGroups(groups []acquisition.Group) Table {
	t := Table{Headers: []string{"acq_group", "subject", "session", "signature"}}
	for _, group := range groups {
		signature := strings.Join(group.Signature, ";")
		for _, session := range group.Sessions {
			t.Rows = append(t.Rows, []string{
				strconv.Itoa(group.ID), session.Subject, session.Session, signature,
			})
		}
	}
	return t
}

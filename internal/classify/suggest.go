package classify

import (
	"strings"

	"tidybids/internal/bids"
)

const variantPrefix = "VARIANT"

// suggestRename builds the advisory target entity key for a variant group:
// the diff field names concatenated behind the VARIANT prefix and appended to
// the acquisition entity value, creating the entity when absent. Purely
// deterministic given the diff, and never auto-applied.
func suggestRename(entityKey string, diff []string) (string, error) {
	token := variantPrefix + strings.Join(diff, "")
	entities, err := bids.ParseEntityKey(entityKey)
	if err != nil {
		return "", err
	}
	acq := entities["acq"] + token
	return bids.SetAcquisition(entityKey, acq)
}

// Record identifiers.
//
// IDs are UUIDv7 strings. The leading 48 bits are a millisecond timestamp,
// so sorting record files by name replays them in creation order.
package shelf

import (
	"fmt"

	"github.com/google/uuid"
)

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}


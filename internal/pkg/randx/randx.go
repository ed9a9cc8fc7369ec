/*
Package randx provides functions for generating unique identifiers.

It is primarily used to generate UUID message IDs and object keys for
image uploads.
*/
package randx

import (
	"fmt"

	"github.com/google/uuid"
)

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}

// FileKey generates an object storage key scoped to the owning user,
// preserving the original file extension (which includes the leading dot).
func FileKey(userID int64, ext string) string {
	return fmt.Sprintf("%d/%s%s", userID, uuid.New().String(), ext)
}

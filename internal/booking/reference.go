package booking

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewReferenceID returns ai_<unix-ms>_<random hex>. The random part keeps ids
// distinct for attempts made in the same millisecond.
func NewReferenceID(now time.Time) string {
	id := uuid.New()
	return fmt.Sprintf("ai_%d_%s", now.UnixMilli(), hex.EncodeToString(id[:8]))
}

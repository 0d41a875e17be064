package transaction

import (
	"crypto/sha256"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// PointID derives the stable point id for a transaction owned by a user:
// a SHA-256 digest of the identifying fields, truncated to 16 bytes and
// formatted as a UUID. The key covers user, date, amount, category and
// description, so two transactions differing only in mcc or cashback map
// to the same id and overwrite each other on upsert. That is the dedup
// policy, not an accident.
func PointID(userID int64, t Transaction) string {
	key := fmt.Sprintf("%d|%s|%s|%s|%s",
		userID,
		t.DateString(),
		strconv.FormatFloat(t.Amount, 'f', -1, 64),
		t.Category,
		t.Description,
	)
	sum := sha256.Sum256([]byte(key))
	id, err := uuid.FromBytes(sum[:16])
	if err != nil {
		// FromBytes only fails on a wrong-length slice.
		panic(err)
	}
	return id.String()
}

package settlement

import (
	"fmt"

	"github.com/google/uuid"
)

// namespace scopes the name-based ids of settlement records.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://tierpay/settlement"))

// SaleID is derived from the session so a replayed settlement collides with
// the original instead of producing a second sale.
func SaleID(sessionID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(sessionID.String()+":sale"))
}

// CommitmentID identifies installment i (zero based) of the session's sale.
func CommitmentID(sessionID uuid.UUID, i int) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(fmt.Sprintf("%s:commitment:%d", sessionID, i)))
}

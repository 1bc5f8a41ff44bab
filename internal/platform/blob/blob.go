// Package blob stores statement photos. Metadata lives with the accident;
// this package only moves bytes by key.
package blob

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"amicable/pkg/domain"
)

// Store is a key/value byte store. Get returns sentinel.ErrNotFound for
// unknown keys; Delete of an unknown key is not an error.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) (data []byte, contentType string, err error)
	Delete(ctx context.Context, key string) error
}

// ImageKey builds a fresh object key for a statement photo.
func ImageKey(accidentID domain.AccidentID, statementID domain.StatementID) string {
	return fmt.Sprintf("accidents/%s/statements/%s/%s", accidentID, statementID, uuid.NewString())
}

// ParseImageKey extracts the accident and statement ids from an ImageKey.
func ParseImageKey(key string) (domain.AccidentID, domain.StatementID, bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 5 || parts[0] != "accidents" || parts[2] != "statements" {
		return 0, 0, false
	}
	accidentID, err := domain.ParseAccidentID(parts[1])
	if err != nil {
		return 0, 0, false
	}
	statementID, err := domain.ParseStatementID(parts[3])
	if err != nil {
		return 0, 0, false
	}
	return accidentID, statementID, true
}

package storage

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// InvoiceHash derives the deduplication key of an invoice from the fields
// that identify it: installation number, reference month and total value.
// Any other field may change between captures of the same bill without
// changing its identity.
func InvoiceHash(installation, month, value string) string {
	payload := strings.Join([]string{installation, month, value}, "|")
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

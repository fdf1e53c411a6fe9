package quotations

import (
	"fmt"
	"strings"
	"time"
)

// DefaultReferencePrefix is used when no prefix is configured.
const DefaultReferencePrefix = "QT"

// ReferencePeriod is the counter period for a quote date, e.g. 202510.
func ReferencePeriod(date time.Time) string {
	return date.Format("200601")
}

// FormatReference renders PREFIX-YYYYMM-NNNN.
func FormatReference(prefix string, date time.Time, n int64) string {
	if prefix == "" {
		prefix = DefaultReferencePrefix
	}
	return fmt.Sprintf("%s-%s-%04d", strings.ToUpper(prefix), ReferencePeriod(date), n)
}

// RevisionReference appends the revision suffix to the root reference.
// Version 1 is the root itself.
func RevisionReference(rootReference string, version int) string {
	if i := strings.LastIndex(rootReference, "-R"); i > 0 && isDigits(rootReference[i+2:]) {
		rootReference = rootReference[:i]
	}
	if version <= 1 {
		return rootReference
	}
	return fmt.Sprintf("%s-R%d", rootReference, version)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

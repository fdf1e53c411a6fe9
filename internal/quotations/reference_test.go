package quotations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatReference(t *testing.T) {
	date := time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "QT-202503-0007", FormatReference("", date, 7))
	assert.Equal(t, "INV-202503-12345", FormatReference("inv", date, 12345))
	assert.Equal(t, "202503", ReferencePeriod(date))
}

func TestRevisionReference(t *testing.T) {
	assert.Equal(t, "QT-202503-0007", RevisionReference("QT-202503-0007", 1))
	assert.Equal(t, "QT-202503-0007-R2", RevisionReference("QT-202503-0007", 2))
	assert.Equal(t, "QT-202503-0007-R3", RevisionReference("QT-202503-0007-R2", 3))
}

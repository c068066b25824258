package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusShipped, false},
		{StatusPending, StatusDelivered, false},
		{StatusProcessing, StatusShipped, true},
		{StatusProcessing, StatusDelivered, false},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestHumanID(t *testing.T) {
	day := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "202603100001", HumanID(day, 1))
	assert.Equal(t, "202603100042", HumanID(day, 42))
	assert.Equal(t, "2026031012345", HumanID(day, 12345), "sequence wider than four digits keeps all digits")
}

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketFor(t *testing.T) {
	tests := []struct {
		eventType string
		want      Bucket
	}{
		{"milestone_broken", BucketMilestones},
		{"connection_request", BucketCrewRequests},
		{"connection_accepted", BucketCrewRequests},
		{"connection_", BucketCrewRequests},
		{"milestone_reached", BucketOther}, // only the exact type maps to milestones
		{"xyz", BucketOther},
		{"", BucketOther},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			assert.Equal(t, tt.want, BucketFor(tt.eventType))
		})
	}
}

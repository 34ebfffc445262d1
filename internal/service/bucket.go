package service

import "strings"

// Bucket is the coarse category that gates notification channels.
type Bucket string

const (
	BucketMilestones   Bucket = "milestones"
	BucketCrewRequests Bucket = "crew_requests"
	BucketOther        Bucket = "other"
)

// Channel is one delivery channel.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelPush  Channel = "push"
)

// BucketFor maps an event type to its preference bucket. Unknown types
// land in other, which is always enabled on both channels.
func BucketFor(eventType string) Bucket {
	switch {
	case eventType == "milestone_broken":
		return BucketMilestones
	case strings.HasPrefix(eventType, "connection_"):
		return BucketCrewRequests
	default:
		return BucketOther
	}
}

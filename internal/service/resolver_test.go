package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"notification-engine/internal/model"
)

type fakePreferenceStore struct {
	pref  *model.NotificationPreference
	err   error
	calls int
}

func (f *fakePreferenceStore) Get(ctx context.Context, userID int64) (*model.NotificationPreference, error) {
	f.calls++
	return f.pref, f.err
}

func boolPtr(b bool) *bool { return &b }

func TestResolverEnabled(t *testing.T) {
	tests := []struct {
		name    string
		pref    *model.NotificationPreference
		err     error
		bucket  Bucket
		channel Channel
		want    bool
	}{
		{"no row in-app defaults on", nil, nil, BucketMilestones, ChannelInApp, true},
		{"no row push defaults off", nil, nil, BucketMilestones, ChannelPush, false},
		{"no row crew requests in-app on", nil, nil, BucketCrewRequests, ChannelInApp, true},
		{"no row crew requests push off", nil, nil, BucketCrewRequests, ChannelPush, false},
		{"store error degrades to in-app default", nil, errors.New(`relation "notification_preferences" does not exist`), BucketMilestones, ChannelInApp, true},
		{"store error degrades to push default", nil, errors.New(`relation "notification_preferences" does not exist`), BucketCrewRequests, ChannelPush, false},
		{"column enables push", &model.NotificationPreference{PushMilestones: boolPtr(true)}, nil, BucketMilestones, ChannelPush, true},
		{"column disables in-app", &model.NotificationPreference{InAppCrewRequests: boolPtr(false)}, nil, BucketCrewRequests, ChannelInApp, false},
		{"null column falls back to default", &model.NotificationPreference{}, nil, BucketMilestones, ChannelInApp, true},
		{"document enables push", &model.NotificationPreference{Doc: json.RawMessage(`{"push_milestones":true}`)}, nil, BucketMilestones, ChannelPush, true},
		{"document disables in-app", &model.NotificationPreference{Doc: json.RawMessage(`{"in_app_milestones":false}`)}, nil, BucketMilestones, ChannelInApp, false},
		{"document wins over columns", &model.NotificationPreference{Doc: json.RawMessage(`{"push_milestones":false}`), PushMilestones: boolPtr(true)}, nil, BucketMilestones, ChannelPush, false},
		{"document missing field uses default not columns", &model.NotificationPreference{Doc: json.RawMessage(`{"in_app_milestones":true}`), PushMilestones: boolPtr(true)}, nil, BucketMilestones, ChannelPush, false},
		{"document mistyped field uses default", &model.NotificationPreference{Doc: json.RawMessage(`{"push_milestones":"yes"}`)}, nil, BucketMilestones, ChannelPush, false},
		{"malformed document falls back to columns", &model.NotificationPreference{Doc: json.RawMessage(`{push_milestones`), PushMilestones: boolPtr(true)}, nil, BucketMilestones, ChannelPush, true},
		{"null document falls back to columns", &model.NotificationPreference{Doc: json.RawMessage(`null`), PushMilestones: boolPtr(true)}, nil, BucketMilestones, ChannelPush, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakePreferenceStore{pref: tt.pref, err: tt.err}
			r := NewPreferenceResolver(store, zap.NewNop())
			assert.Equal(t, tt.want, r.Enabled(context.Background(), 42, tt.bucket, tt.channel))
		})
	}
}

func TestResolverOtherBucketSkipsStorage(t *testing.T) {
	store := &fakePreferenceStore{err: errors.New("store must not be touched")}
	r := NewPreferenceResolver(store, zap.NewNop())

	assert.True(t, r.Enabled(context.Background(), 42, BucketOther, ChannelInApp))
	assert.True(t, r.Enabled(context.Background(), 42, BucketOther, ChannelPush))
	assert.Zero(t, store.calls)
}

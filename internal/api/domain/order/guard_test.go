package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdmit(t *testing.T) {
	stored := &OrderRecord{FormID: "f1", Status: StatusPending, RawPayloadDigest: "d-pending"}

	testCases := []struct {
		name     string
		fragment Fragment
		existing *OrderRecord
		expected Action
	}{
		{
			name:     "first delivery creates",
			fragment: Fragment{FormID: "f1", Status: StatusPending, Digest: "d-pending"},
			existing: nil,
			expected: Action{Kind: ActionCreate, Status: StatusPending},
		},
		{
			name:     "identical delivery is a duplicate",
			fragment: Fragment{FormID: "f1", Status: StatusPending, Digest: "d-pending"},
			existing: stored,
			expected: Action{Kind: ActionIgnore, Reason: ReasonDuplicateDelivery},
		},
		{
			name:     "forward transition updates status",
			fragment: Fragment{FormID: "f1", Status: StatusCompleted, Digest: "d-completed"},
			existing: stored,
			expected: Action{Kind: ActionUpdateStatus, Status: StatusCompleted},
		},
		{
			name:     "same status with new content is ignored",
			fragment: Fragment{FormID: "f1", Status: StatusPending, Digest: "d-pending-2"},
			existing: stored,
			expected: Action{Kind: ActionIgnore, Reason: ReasonUnchangedStatus},
		},
		{
			name:     "late pending after completion is stale",
			fragment: Fragment{FormID: "f1", Status: StatusPending, Digest: "d-pending-2"},
			existing: &OrderRecord{FormID: "f1", Status: StatusCompleted, RawPayloadDigest: "d-completed"},
			expected: Action{Kind: ActionIgnore, Reason: ReasonStaleDelivery},
		},
		{
			name:     "terminal never flips",
			fragment: Fragment{FormID: "f1", Status: StatusFailed, Digest: "d-failed"},
			existing: &OrderRecord{FormID: "f1", Status: StatusCompleted, RawPayloadDigest: "d-completed"},
			expected: Action{Kind: ActionIgnore, Reason: ReasonStaleDelivery},
		},
		{
			name:     "unknown never overwrites a known status",
			fragment: Fragment{FormID: "f1", Status: StatusUnknown, Digest: "d-unknown"},
			existing: stored,
			expected: Action{Kind: ActionIgnore, Reason: ReasonStaleDelivery},
		},
		{
			name:     "unknown is clarified later",
			fragment: Fragment{FormID: "f1", Status: StatusCompleted, Digest: "d-completed"},
			existing: &OrderRecord{FormID: "f1", Status: StatusUnknown, RawPayloadDigest: "d-unknown"},
			expected: Action{Kind: ActionUpdateStatus, Status: StatusCompleted},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			action := Admit(tc.fragment, tc.existing)

			// then
			assert.Equal(t, tc.expected, action)
		})
	}
}

func TestAction_ChangesState(t *testing.T) {
	assert.True(t, Action{Kind: ActionCreate}.ChangesState())
	assert.True(t, Action{Kind: ActionUpdateStatus}.ChangesState())
	assert.False(t, Action{Kind: ActionIgnore}.ChangesState())
}

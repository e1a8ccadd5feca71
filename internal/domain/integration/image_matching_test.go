package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestMatchImageSlots(t *testing.T) {
	slots := []ImageSlot{{ID: 1, Description: "Front"}, {ID: 2, Description: "Back"}, {ID: 3, Description: "Label"}}
	uploads := []UploadedImage{
		{ImageID: 500, DescriptiveTag: "Back"},
		{ImageID: 501, DescriptiveTag: "Front"},
		{ImageID: 502, DescriptiveTag: "Front"},
		{ImageID: 503, DescriptiveTag: "Box"},
	}

	t.Run("Attach policy keeps unmatched images without slot", func(t *testing.T) {
		got := MatchImageSlots(uploads, slots, SlotPolicyAttach)
		assert.Equal(t, []AssignedImage{
			{SlotID: int64Ptr(1), ImageID: 501},
			{SlotID: int64Ptr(2), ImageID: 500},
			{ImageID: 502},
			{ImageID: 503},
		}, got)
	})

	t.Run("Drop policy keeps only slotted images", func(t *testing.T) {
		got := MatchImageSlots(uploads, slots, SlotPolicyDrop)
		assert.Equal(t, []AssignedImage{
			{SlotID: int64Ptr(1), ImageID: 501},
			{SlotID: int64Ptr(2), ImageID: 500},
		}, got)
	})

	t.Run("Tag comparison is exact", func(t *testing.T) {
		got := MatchImageSlots([]UploadedImage{{ImageID: 1, DescriptiveTag: "front"}}, slots, SlotPolicyDrop)
		assert.Empty(t, got)
	})

	t.Run("No uploads yields nothing", func(t *testing.T) {
		assert.Empty(t, MatchImageSlots(nil, slots, SlotPolicyAttach))
	})

	t.Run("Category without slots under attach", func(t *testing.T) {
		got := MatchImageSlots(uploads[:1], nil, SlotPolicyAttach)
		require.Len(t, got, 1)
		assert.Nil(t, got[0].SlotID)
	})
}

func TestParseSlotPolicy(t *testing.T) {
	p, ok := ParseSlotPolicy("")
	assert.True(t, ok)
	assert.Equal(t, SlotPolicyAttach, p)

	p, ok = ParseSlotPolicy(" DROP ")
	assert.True(t, ok)
	assert.Equal(t, SlotPolicyDrop, p)

	_, ok = ParseSlotPolicy("merge")
	assert.False(t, ok)
}

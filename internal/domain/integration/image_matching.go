package integration

import "strings"

// ---------------------------------------------------------------------------
// Image-Slot Matching
// ---------------------------------------------------------------------------

// SlotPolicy decides what happens to uploaded images that match no slot
type SlotPolicy string

const (
	// SlotPolicyAttach attaches unmatched images without a slot id
	SlotPolicyAttach SlotPolicy = "attach"
	// SlotPolicyDrop discards unmatched images
	SlotPolicyDrop SlotPolicy = "drop"
)

// IsValid returns true if the policy is known
func (p SlotPolicy) IsValid() bool {
	switch p {
	case SlotPolicyAttach, SlotPolicyDrop:
		return true
	default:
		return false
	}
}

// ParseSlotPolicy parses a policy name, defaulting to attach for empty input
func ParseSlotPolicy(s string) (SlotPolicy, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SlotPolicyAttach, true
	}
	p := SlotPolicy(s)
	return p, p.IsValid()
}

// UploadedImage is a destination image id with its originating tag
type UploadedImage struct {
	ImageID        int64
	DescriptiveTag string
}

// AssignedImage is one image reference on the order payload
type AssignedImage struct {
	// SlotID is nil for images attached without a slot
	SlotID  *int64
	ImageID int64
}

// MatchImageSlots assigns uploads to the category's slots.
//
// Slots are visited in declaration order and each takes the first unused
// upload whose tag equals the slot description. Remaining uploads are
// appended without a slot under SlotPolicyAttach and discarded otherwise.
func MatchImageSlots(uploads []UploadedImage, slots []ImageSlot, policy SlotPolicy) []AssignedImage {
	assigned := make([]AssignedImage, 0, len(uploads))
	used := make([]bool, len(uploads))

	for _, slot := range slots {
		for i, up := range uploads {
			if used[i] || up.DescriptiveTag != slot.Description {
				continue
			}
			slotID := slot.ID
			assigned = append(assigned, AssignedImage{SlotID: &slotID, ImageID: up.ImageID})
			used[i] = true
			break
		}
	}

	if policy == SlotPolicyDrop {
		return assigned
	}
	for i, up := range uploads {
		if !used[i] {
			assigned = append(assigned, AssignedImage{ImageID: up.ImageID})
		}
	}
	return assigned
}

// Package selection records which avatars, and which of their resolved
// descriptors, the user picked for a batch. Values are immutable: every
// update returns a new Selection and leaves the receiver untouched.
package selection

import (
	"slices"
	"strings"
)

// Selection is an ordered set of avatar IDs, each with an optional set of
// descriptor IDs. An avatar with no descriptor IDs means "all descriptors".
type Selection struct {
	order       []string
	descriptors map[string][]string
}

// New returns a selection containing the given avatars with no descriptor restriction.
func New(avatarIDs ...string) Selection {
	var s Selection
	for _, id := range avatarIDs {
		s = s.WithAvatar(id)
	}
	return s
}

func (s Selection) clone() Selection {
	next := Selection{
		order:       slices.Clone(s.order),
		descriptors: make(map[string][]string, len(s.descriptors)+1),
	}
	for id, descs := range s.descriptors {
		next.descriptors[id] = slices.Clone(descs)
	}
	return next
}

// WithAvatar selects an avatar. When descriptor IDs are given they replace the
// avatar's current descriptor restriction.
func (s Selection) WithAvatar(avatarID string, descriptorIDs ...string) Selection {
	avatarID = strings.TrimSpace(avatarID)
	if avatarID == "" {
		return s
	}
	next := s.clone()
	if _, ok := next.descriptors[avatarID]; !ok {
		next.order = append(next.order, avatarID)
		next.descriptors[avatarID] = nil
	}
	if len(descriptorIDs) > 0 {
		next.descriptors[avatarID] = dedupe(descriptorIDs)
	}
	return next
}

// WithDescriptor adds one descriptor to an avatar's restriction, selecting the
// avatar if needed.
func (s Selection) WithDescriptor(avatarID, descriptorID string) Selection {
	avatarID = strings.TrimSpace(avatarID)
	descriptorID = strings.TrimSpace(descriptorID)
	if avatarID == "" || descriptorID == "" {
		return s
	}
	next := s.WithAvatar(avatarID)
	if !slices.Contains(next.descriptors[avatarID], descriptorID) {
		next.descriptors[avatarID] = append(next.descriptors[avatarID], descriptorID)
	}
	return next
}

// WithoutDescriptor removes one descriptor from an avatar's restriction.
// Removing the last one leaves the avatar selected with no restriction.
func (s Selection) WithoutDescriptor(avatarID, descriptorID string) Selection {
	descs, ok := s.descriptors[avatarID]
	if !ok || !slices.Contains(descs, descriptorID) {
		return s
	}
	next := s.clone()
	next.descriptors[avatarID] = slices.DeleteFunc(next.descriptors[avatarID], func(id string) bool {
		return id == descriptorID
	})
	return next
}

// WithoutAvatar deselects an avatar and forgets its descriptors.
func (s Selection) WithoutAvatar(avatarID string) Selection {
	if _, ok := s.descriptors[avatarID]; !ok {
		return s
	}
	next := s.clone()
	delete(next.descriptors, avatarID)
	next.order = slices.DeleteFunc(next.order, func(id string) bool { return id == avatarID })
	return next
}

// Avatars returns the selected avatar IDs in selection order.
func (s Selection) Avatars() []string {
	return slices.Clone(s.order)
}

// Descriptors returns the explicit descriptor restriction for an avatar.
func (s Selection) Descriptors(avatarID string) []string {
	return slices.Clone(s.descriptors[avatarID])
}

// Has reports whether the avatar is selected.
func (s Selection) Has(avatarID string) bool {
	_, ok := s.descriptors[avatarID]
	return ok
}

// Includes reports whether a descriptor of a selected avatar is part of the selection.
func (s Selection) Includes(avatarID, descriptorID string) bool {
	descs, ok := s.descriptors[avatarID]
	if !ok {
		return false
	}
	return len(descs) == 0 || slices.Contains(descs, descriptorID)
}

// Len returns the number of selected avatars.
func (s Selection) Len() int {
	return len(s.order)
}

// IsEmpty reports whether nothing is selected.
func (s Selection) IsEmpty() bool {
	return len(s.order) == 0
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

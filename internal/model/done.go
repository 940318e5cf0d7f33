package model

import "github.com/samber/lo"

func (idx *DoneVideosIndex) Contains(id string) bool {
	return lo.ContainsBy(idx.Items, func(v DoneVideo) bool { return v.ID == id })
}

// Add appends v unless an entry with the same id is already present.
// It reports whether the index changed.
func (idx *DoneVideosIndex) Add(v DoneVideo) bool {
	if idx.Contains(v.ID) {
		return false
	}
	idx.Items = append(idx.Items, v)
	return true
}

func (idx *DoneVideosIndex) Find(id string) (DoneVideo, bool) {
	return lo.Find(idx.Items, func(v DoneVideo) bool { return v.ID == id })
}

// Merge adds every entry of other missing from idx and returns how many were added.
func (idx *DoneVideosIndex) Merge(other DoneVideosIndex) int {
	added := 0
	for _, v := range other.Items {
		if idx.Add(v) {
			added++
		}
	}
	return added
}

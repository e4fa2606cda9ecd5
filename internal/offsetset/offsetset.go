// Package offsetset implements OffsetSet: a small bounded exclusion set
// used to enforce that no two in-flight requests ever target the same
// byte offset.
package offsetset

// OffsetSet is a linear-scan set of byte offsets, correct and fast enough
// because its size is bounded by max_iodepth (typically <= 128) and it
// only sits on the per-request path, not a tight inner loop. Grounded on
// the reference implementation's SimpleSet<T>: not_found_and_insert scans
// then appends, find_and_remove scans then swaps with the last element
// before truncating.
//
// OffsetSet is not itself safe for concurrent use: it is always accessed
// under the same lock that guards PatternGenerator's internal state (see
// the pattern package), so it carries no mutex of its own.
type OffsetSet struct {
	list []int64
}

// New returns an empty OffsetSet with capacity reserved for maxIODepth
// entries, avoiding reallocation on the hot path.
func New(maxIODepth int) *OffsetSet {
	return &OffsetSet{list: make([]int64, 0, maxIODepth)}
}

// InsertIfAbsent inserts offset and returns true iff it was not already
// present.
func (s *OffsetSet) InsertIfAbsent(offset int64) bool {
	for _, v := range s.list {
		if v == offset {
			return false
		}
	}
	s.list = append(s.list, offset)
	return true
}

// Remove removes offset and returns true iff it was present.
func (s *OffsetSet) Remove(offset int64) bool {
	for i, v := range s.list {
		if v == offset {
			last := len(s.list) - 1
			s.list[i] = s.list[last]
			s.list = s.list[:last]
			return true
		}
	}
	return false
}

// Size returns the current number of offsets held.
func (s *OffsetSet) Size() int {
	return len(s.list)
}

// Clear empties the set.
func (s *OffsetSet) Clear() {
	s.list = s.list[:0]
}

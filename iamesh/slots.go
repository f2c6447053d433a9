package iamesh

import "fmt"

// slotSet is a sparse set of indices. Removed slots become holes that are
// reused, most recently removed first, before the set grows.
type slotSet struct {
	valid []bool
	holes []int32
}

func (s *slotSet) size() int { return len(s.valid) }

func (s *slotSet) count() int { return len(s.valid) - len(s.holes) }

func (s *slotSet) isValid(i int) bool {
	return i >= 0 && i < len(s.valid) && s.valid[i]
}

// insert marks a slot valid and returns it. grew is true when the slot is
// new storage rather than a reused hole.
func (s *slotSet) insert() (slot int, grew bool) {
	if n := len(s.holes); n > 0 {
		slot = int(s.holes[n-1])
		s.holes = s.holes[:n-1]
		s.valid[slot] = true
		return slot, false
	}
	s.valid = append(s.valid, true)
	return len(s.valid) - 1, true
}

func (s *slotSet) remove(i int) {
	if !s.isValid(i) {
		panic(fmt.Sprintf("bug: removing invalid slot %d", i))
	}
	s.valid[i] = false
	s.holes = append(s.holes, int32(i))
}

// reset makes the set the dense range [0,n).
func (s *slotSet) reset(n int) {
	s.valid = make([]bool, n)
	for i := range s.valid {
		s.valid[i] = true
	}
	s.holes = s.holes[:0]
}

func (s *slotSet) clone() slotSet {
	return slotSet{
		valid: append([]bool(nil), s.valid...),
		holes: append([]int32(nil), s.holes...),
	}
}

// problems reports inconsistencies between the validity flags and holes.
func (s *slotSet) problems(name string) (p []string) {
	seen := make(map[int32]bool, len(s.holes))
	for _, h := range s.holes {
		switch {
		case h < 0 || int(h) >= len(s.valid):
			p = append(p, fmt.Sprintf("%s set: hole %d out of range [0,%d)", name, h, len(s.valid)))
		case s.valid[h]:
			p = append(p, fmt.Sprintf("%s set: hole %d is marked valid", name, h))
		case seen[h]:
			p = append(p, fmt.Sprintf("%s set: hole %d listed twice", name, h))
		}
		seen[h] = true
	}
	invalid := 0
	for _, ok := range s.valid {
		if !ok {
			invalid++
		}
	}
	if invalid != len(s.holes) {
		p = append(p, fmt.Sprintf("%s set: %d invalid slots but %d holes", name, invalid, len(s.holes)))
	}
	return p
}

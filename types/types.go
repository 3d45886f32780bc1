package types

// FilterStats describes what a single filter pass did to a feed.
type FilterStats struct {
	Segments int  `json:"segments"`
	Removed  int  `json:"removed"`
	Repaired bool `json:"repaired"`
}

// Kept is the number of segments that made it into the output.
func (s FilterStats) Kept() int {
	return s.Segments - s.Removed
}

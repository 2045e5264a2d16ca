package routing

// GraphDiff carries the full next view, or nothing when the layout did not change.
type GraphDiff struct {
	Data *View `json:"data,omitempty"`
}

// IsEmpty returns true if the diff contains no data.
func (d GraphDiff) IsEmpty() bool {
	return d.Data == nil
}

// Differ ships the whole new view whenever the layout moved.
func Differ(old, new *View) GraphDiff {
	if old.Equal(new) {
		return GraphDiff{}
	}
	return GraphDiff{Data: new.Clone()}
}

// Patcher returns a deep copy of the diff's view, or of prevState for an empty diff.
func Patcher(prevState *View, diff GraphDiff) (*View, error) {
	if diff.IsEmpty() {
		return prevState.Clone(), nil
	}
	return diff.Data.Clone(), nil
}

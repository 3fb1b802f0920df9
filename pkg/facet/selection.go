package facet

// ToggleValue returns the selection that results from clicking value.
//
// With multi=false it behaves as a single-select toggle: clicking the only
// selected value deselects it, clicking anything else replaces the selection.
// With multi=true the value's membership is toggled and the remaining values
// keep their relative order.
//
// The input slice is never modified.
func ToggleValue[V comparable](values []V, value V, multi bool) []V {
	if !multi {
		if len(values) == 1 && values[0] == value {
			return []V{}
		}
		return []V{value}
	}

	out := make([]V, 0, len(values)+1)
	removed := false
	for _, v := range values {
		if v == value {
			removed = true
			continue
		}
		out = append(out, v)
	}
	if !removed {
		out = append(out, value)
	}
	return out
}

// contains reports whether value is part of values.
func contains[V comparable](values []V, value V) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

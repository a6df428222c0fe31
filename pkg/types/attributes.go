package types

// Attributes are the option values that distinguish a variant, e.g. color=red.
type Attributes map[string]string

// Clone returns an independent copy so snapshots never alias catalog data.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// StringList is a JSON-serialized list of strings (image URLs).
type StringList []string

// First returns the first entry or "".
func (s StringList) First() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

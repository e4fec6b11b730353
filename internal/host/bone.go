package host

// Bone is one record of an armature's bone hierarchy.
type Bone struct {
	Name      string     `json:"name" yaml:"name"`
	Parent    string     `json:"parent,omitempty" yaml:"parent,omitempty"`
	Head      [3]float64 `json:"head" yaml:"head,flow"`
	Tail      [3]float64 `json:"tail" yaml:"tail,flow"`
	Roll      float64    `json:"roll" yaml:"roll"`
	Connected bool       `json:"use_connect" yaml:"use_connect"`
	Deform    bool       `json:"use_deform" yaml:"use_deform"`
}

// CloneBones returns a copy of bones. A nil input yields nil.
func CloneBones(bones []Bone) []Bone {
	if bones == nil {
		return nil
	}
	out := make([]Bone, len(bones))
	copy(out, bones)
	return out
}

// IndexBone returns the index of the bone named name, or -1.
func IndexBone(bones []Bone, name string) int {
	for i := range bones {
		if bones[i].Name == name {
			return i
		}
	}
	return -1
}

// EqualBones reports whether a and b hold the same bones in the same order.
func EqualBones(a, b []Bone) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

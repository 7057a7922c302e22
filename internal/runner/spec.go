package runner

import (
	"fmt"

	v1 "github.com/wuxianggujun/FastExcel-sub003/apis/v1"
)

// ResolvedSpec holds a kind identifier and the spec for that kind.
type ResolvedSpec struct {
	Kind string
	Spec any
}

// ResolveInputSpec extracts the kind and spec from a v1.Input.
// Returns an error if no source type, or more than one, is specified.
func ResolveInputSpec(in v1.Input) (ResolvedSpec, error) {
	var resolved []ResolvedSpec
	if in.File != nil {
		resolved = append(resolved, ResolvedSpec{Kind: "file", Spec: in.File})
	}
	if in.HTTP != nil {
		resolved = append(resolved, ResolvedSpec{Kind: "http", Spec: in.HTTP})
	}
	if in.Exec != nil {
		resolved = append(resolved, ResolvedSpec{Kind: "exec", Spec: in.Exec})
	}

	switch len(resolved) {
	case 0:
		return ResolvedSpec{}, fmt.Errorf("input %q has no source specified", in.As)
	case 1:
		return resolved[0], nil
	default:
		return ResolvedSpec{}, fmt.Errorf("input %q has more than one source specified", in.As)
	}
}

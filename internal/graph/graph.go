// Package graph is a read-only view of prerequisite edges across the catalog.
// A View is built from a snapshot of courses and never mutated, so it always
// reflects the catalog state it was built from.
package graph

import "github.com/classify/catalog/internal/domain"

// Prerequisite is one entry of a course's prerequisite list, resolved
// against the catalog.
type Prerequisite struct {
	Code   domain.CourseCode `json:"code"`
	Exists bool              `json:"exists"`
}

// View indexes forward and reverse prerequisite edges.
type View struct {
	prereqs map[domain.CourseCode][]domain.CourseCode
	reverse map[domain.CourseCode][]domain.CourseCode
}

// Build indexes courses. Reverse edges are listed in the order the referring
// courses appear in courses, each referrer once.
func Build(courses []*domain.Course) *View {
	v := &View{
		prereqs: make(map[domain.CourseCode][]domain.CourseCode, len(courses)),
		reverse: make(map[domain.CourseCode][]domain.CourseCode),
	}
	for _, c := range courses {
		v.prereqs[c.Code] = c.Prerequisites

		seen := make(map[domain.CourseCode]struct{}, len(c.Prerequisites))
		for _, p := range c.Prerequisites {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			v.reverse[p] = append(v.reverse[p], c.Code)
		}
	}
	return v
}

// Exists reports whether code names a course in the view.
func (v *View) Exists(code domain.CourseCode) bool {
	_, ok := v.prereqs[code]
	return ok
}

// PrerequisitesOf returns the stored prerequisite list of code verbatim,
// dangling references included. ok is false when code is not a course.
func (v *View) PrerequisitesOf(code domain.CourseCode) (prereqs []domain.CourseCode, ok bool) {
	p, ok := v.prereqs[code]
	if !ok {
		return nil, false
	}
	return append([]domain.CourseCode{}, p...), true
}

// RequiredForOf returns every course that lists code as a prerequisite. code
// need not exist itself.
func (v *View) RequiredForOf(code domain.CourseCode) []domain.CourseCode {
	return append([]domain.CourseCode{}, v.reverse[code]...)
}

// Resolve pairs each prerequisite of code with whether it exists.
func (v *View) Resolve(code domain.CourseCode) ([]Prerequisite, bool) {
	prereqs, ok := v.prereqs[code]
	if !ok {
		return nil, false
	}
	out := make([]Prerequisite, 0, len(prereqs))
	for _, p := range prereqs {
		out = append(out, Prerequisite{Code: p, Exists: v.Exists(p)})
	}
	return out, true
}

// Missing returns the prerequisites of code that do not resolve to a course.
func (v *View) Missing(code domain.CourseCode) ([]domain.CourseCode, bool) {
	prereqs, ok := v.prereqs[code]
	if !ok {
		return nil, false
	}
	out := []domain.CourseCode{}
	for _, p := range prereqs {
		if !v.Exists(p) {
			out = append(out, p)
		}
	}
	return out, true
}

// IsSatisfiable reports whether every direct prerequisite of code exists.
// Transitive prerequisites and cycles are not considered.
func (v *View) IsSatisfiable(code domain.CourseCode) (satisfiable, ok bool) {
	missing, ok := v.Missing(code)
	if !ok {
		return false, false
	}
	return len(missing) == 0, true
}

// Closure returns every course reachable through prerequisite edges from
// code, in breadth-first order, excluding code itself. Dangling references
// are included but not expanded. Cycles are tolerated.
func (v *View) Closure(code domain.CourseCode) ([]domain.CourseCode, bool) {
	if !v.Exists(code) {
		return nil, false
	}

	visited := map[domain.CourseCode]struct{}{code: {}}
	queue := []domain.CourseCode{code}
	out := []domain.CourseCode{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range v.prereqs[cur] {
			if _, seen := visited[p]; seen {
				continue
			}
			visited[p] = struct{}{}
			out = append(out, p)
			queue = append(queue, p)
		}
	}
	return out, true
}

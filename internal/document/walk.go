package document

// Walk visits roots and all of their descendants in pre-order using an
// explicit stack, so arbitrarily deep trees do not grow the call stack.
// Returning false from fn stops the walk.
func Walk(roots []*Section, fn func(*Section) bool) {
	stack := make([]*Section, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s == nil {
			continue
		}
		if !fn(s) {
			return
		}
		for i := len(s.Children) - 1; i >= 0; i-- {
			stack = append(stack, s.Children[i])
		}
	}
}

// Flatten returns roots and their descendants in pre-order.
func Flatten(roots []*Section) []*Section {
	var out []*Section
	Walk(roots, func(s *Section) bool {
		out = append(out, s)
		return true
	})
	return out
}

// MaxDepth returns the deepest heading level among sections, or 0.
func MaxDepth(sections []*Section) int {
	depth := 0
	for _, s := range sections {
		if s.Level > depth {
			depth = s.Level
		}
	}
	return depth
}

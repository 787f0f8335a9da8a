package fqn

// Frame is one entry of the scope stack.
type Frame struct {
	ScopeID int64
	FQN     string
}

// Stack is a persistent scope stack. Push returns a new stack sharing the
// tail with the receiver, so a stack handed to a subtree can never be
// mutated by a sibling subtree or another traversal.
type Stack struct {
	top   *link
	depth int
}

type link struct {
	frame Frame
	next  *link
}

// NewStack returns a stack holding only root.
func NewStack(root Frame) Stack {
	return Stack{top: &link{frame: root}, depth: 1}
}

// Push returns s with f on top. s is left unchanged.
func (s Stack) Push(f Frame) Stack {
	return Stack{top: &link{frame: f, next: s.top}, depth: s.depth + 1}
}

// Pop returns s without its top frame. Popping the root yields an empty stack.
func (s Stack) Pop() Stack {
	if s.top == nil {
		return s
	}
	return Stack{top: s.top.next, depth: s.depth - 1}
}

// Top returns the innermost frame. The zero Frame is returned for an empty stack.
func (s Stack) Top() Frame {
	if s.top == nil {
		return Frame{}
	}
	return s.top.frame
}

// Depth is the number of frames.
func (s Stack) Depth() int {
	return s.depth
}

// Empty reports whether the stack has no frames.
func (s Stack) Empty() bool {
	return s.top == nil
}

// Frames returns the frames root first.
func (s Stack) Frames() []Frame {
	out := make([]Frame, s.depth)
	i := s.depth - 1
	for l := s.top; l != nil; l = l.next {
		out[i] = l.frame
		i--
	}
	return out
}

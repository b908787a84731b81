package ui

import tea "github.com/charmbracelet/bubbletea"

// Overlay is a modal or popup drawn over the menu and page.
type Overlay struct {
	View    View
	Dismiss string // key that dismisses, e.g. "esc"
}

// IsDismissKey reports whether key dismisses this overlay.
func (o *Overlay) IsDismissKey(key string) bool {
	return o.Dismiss != "" && key == o.Dismiss
}

// closer is implemented by overlays holding resources (e.g. a running
// diagnostic session).
type closer interface {
	Close()
}

// OverlayStack is a stack of overlays; the topmost receives key input.
type OverlayStack struct {
	Stack []Overlay
}

// Push adds an overlay to the top of the stack.
func (s *OverlayStack) Push(o Overlay) {
	s.Stack = append(s.Stack, o)
}

// Pop removes and returns the top overlay.
func (s *OverlayStack) Pop() (Overlay, bool) {
	if len(s.Stack) == 0 {
		return Overlay{}, false
	}
	top := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return top, true
}

// Peek returns the top overlay without removing it.
func (s *OverlayStack) Peek() (Overlay, bool) {
	if len(s.Stack) == 0 {
		return Overlay{}, false
	}
	return s.Stack[len(s.Stack)-1], true
}

// Len returns the number of overlays in the stack.
func (s *OverlayStack) Len() int {
	return len(s.Stack)
}

// Dismiss pops the top overlay and closes it if it holds resources.
func (s *OverlayStack) Dismiss() bool {
	o, ok := s.Pop()
	if ok {
		if c, isCloser := o.View.(closer); isCloser {
			c.Close()
		}
	}
	return ok
}

// CloseAll dismisses every overlay.
func (s *OverlayStack) CloseAll() {
	for s.Dismiss() {
	}
}

// UpdateTop passes msg to the top overlay and replaces its View with the
// result. The caller runs the returned cmd.
func (s *OverlayStack) UpdateTop(msg tea.Msg) (tea.Cmd, bool) {
	if len(s.Stack) == 0 {
		return nil, false
	}
	top := &s.Stack[len(s.Stack)-1]
	newView, cmd := top.View.Update(msg)
	top.View = newView
	return cmd, true
}

// UpdateAll passes a non-key msg to every overlay, bottom first.
func (s *OverlayStack) UpdateAll(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	for i := range s.Stack {
		v, cmd := s.Stack[i].View.Update(msg)
		s.Stack[i].View = v
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

package ui

// FocusManager tracks and rotates focus across panels or form fields.
type FocusManager struct {
	Current  string   // ID of the focused element
	Order    []string // Tab order
	OnChange func(from, to string)
}

func (f *FocusManager) index() int {
	for i, id := range f.Order {
		if id == f.Current {
			return i
		}
	}
	return -1
}

func (f *FocusManager) move(to int) string {
	if len(f.Order) == 0 {
		return ""
	}
	from := f.Current
	f.Current = f.Order[(to+len(f.Order))%len(f.Order)]
	if f.OnChange != nil && from != f.Current {
		f.OnChange(from, f.Current)
	}
	return f.Current
}

// Next advances focus and returns the new current ID. With no current
// element the first one is focused.
func (f *FocusManager) Next() string {
	return f.move(f.index() + 1)
}

// Prev moves focus back and returns the new current ID.
func (f *FocusManager) Prev() string {
	i := f.index()
	if i < 0 {
		i = 0
	}
	return f.move(i - 1)
}

// SetFocus focuses id. Returns false if id is not in Order.
func (f *FocusManager) SetFocus(id string) bool {
	for i, o := range f.Order {
		if o == id {
			f.move(i)
			return true
		}
	}
	return false
}

// Is reports whether id has focus.
func (f *FocusManager) Is(id string) bool {
	return f.Current == id
}

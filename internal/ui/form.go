package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"opmenu/internal/ui/textutil"
)

// formField is one labelled input. Toggle fields hold a boolean flipped with
// space or enter instead of text.
type formField struct {
	id       string
	label    string // localization key
	input    textinput.Model
	check    func(string) error
	err      error
	toggle   bool
	on       bool
	disabled func() bool
}

func textField(id, label, value string, limit int, check func(string) error) *formField {
	in := textinput.New()
	in.Prompt = ""
	in.CharLimit = limit
	in.SetValue(value)
	return &formField{id: id, label: label, input: in, check: check}
}

func toggleField(id, label string, on bool) *formField {
	return &formField{id: id, label: label, toggle: true, on: on}
}

func (f *formField) value() string {
	return strings.TrimSpace(f.input.Value())
}

func (f *formField) inactive() bool {
	return f.disabled != nil && f.disabled()
}

func (f *formField) validate() bool {
	f.err = nil
	if f.toggle || f.check == nil || f.inactive() {
		return true
	}
	f.err = f.check(f.value())
	return f.err == nil
}

// form is a column of fields with tab focus and inline validation errors.
type form struct {
	fields []*formField
	focus  FocusManager
}

func newForm(fields ...*formField) *form {
	f := &form{fields: fields}
	for _, fl := range fields {
		f.focus.Order = append(f.focus.Order, fl.id)
	}
	f.focus.OnChange = func(from, to string) {
		if fl := f.field(from); fl != nil && !fl.toggle {
			fl.input.Blur()
			fl.validate()
		}
		if fl := f.field(to); fl != nil && !fl.toggle {
			fl.input.Focus()
		}
	}
	if len(fields) > 0 {
		f.focus.SetFocus(fields[0].id)
		if !fields[0].toggle {
			fields[0].input.Focus()
		}
	}
	return f
}

func (f *form) field(id string) *formField {
	for _, fl := range f.fields {
		if fl.id == id {
			return fl
		}
	}
	return nil
}

func (f *form) current() *formField {
	return f.field(f.focus.Current)
}

// update handles focus movement and edits. It returns true when the key was
// used by the form.
func (f *form) update(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		f.focus.Next()
		return true, nil
	case "shift+tab", "up":
		f.focus.Prev()
		return true, nil
	}
	cur := f.current()
	if cur == nil || cur.inactive() {
		return false, nil
	}
	if cur.toggle {
		switch msg.String() {
		case " ", "enter":
			cur.on = !cur.on
			return true, nil
		}
		return false, nil
	}
	if msg.String() == "enter" {
		cur.validate()
		f.focus.Next()
		return true, nil
	}
	var cmd tea.Cmd
	cur.input, cmd = cur.input.Update(msg)
	if cur.err != nil {
		cur.validate()
	}
	return true, cmd
}

// validate checks every field and reports whether all passed.
func (f *form) validate() bool {
	ok := true
	for _, fl := range f.fields {
		if !fl.validate() {
			ok = false
		}
	}
	return ok
}

// takesSpace reports whether an enabled toggle has focus.
func (f *form) takesSpace() bool {
	cur := f.current()
	return cur != nil && cur.toggle && !cur.inactive()
}

// capturing reports whether a text input has focus.
func (f *form) capturing() bool {
	cur := f.current()
	return cur != nil && !cur.toggle && !cur.inactive()
}

// view renders label, input and the localized error of each field.
func (f *form) view(b *pageBase) string {
	labels := make([]string, len(f.fields))
	width := 0
	for i, fl := range f.fields {
		labels[i] = b.t(fl.label)
		if w := textutil.Width(labels[i]); w > width {
			width = w
		}
	}
	var s strings.Builder
	for i, fl := range f.fields {
		focused := f.focus.Is(fl.id)
		s.WriteString(marker(focused))
		s.WriteString(textutil.PadRight(labels[i], width))
		s.WriteString("  ")
		switch {
		case fl.toggle:
			box := "[ ]"
			if fl.on {
				box = "[x]"
			}
			s.WriteString(box)
		case fl.inactive():
			s.WriteString(Styles.Off.Render(fl.input.Value()))
		default:
			s.WriteString(fl.input.View())
		}
		if fl.err != nil {
			s.WriteString("  ")
			s.WriteString(Styles.FieldError.Render(b.errText(fl.err)))
		}
		if i < len(f.fields)-1 {
			s.WriteString("\n")
		}
	}
	return s.String()
}

package ui

import (
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const leaderSeq = "SPC"

// binding is one registered key sequence. desc is a localization key; modes
// restricts where the binding is offered, empty meaning everywhere.
type binding struct {
	cmd   tea.Cmd
	desc  string
	modes []AppMode
}

func (b binding) offeredIn(mode AppMode) bool {
	return len(b.modes) == 0 || slices.Contains(b.modes, mode)
}

// KeybindRegistry maps key sequences to commands. Sequences are written
// space-separated with "SPC" for the leader: "SPC l", "SPC c o". Single keys
// use Bubble Tea names such as "ctrl+c".
type KeybindRegistry struct {
	bindings map[string]binding
}

// NewKeybindRegistry creates an empty registry.
func NewKeybindRegistry() *KeybindRegistry {
	return &KeybindRegistry{bindings: make(map[string]binding)}
}

// Bind registers seq without a description. A later Bind of the same
// sequence replaces it.
func (r *KeybindRegistry) Bind(seq string, cmd tea.Cmd) {
	r.BindWithDescForMode(seq, cmd, "", nil)
}

// BindWithDesc registers seq in every mode with a description key.
func (r *KeybindRegistry) BindWithDesc(seq string, cmd tea.Cmd, desc string) {
	r.BindWithDescForMode(seq, cmd, desc, nil)
}

// BindWithDescForMode registers seq for the given modes only.
func (r *KeybindRegistry) BindWithDescForMode(seq string, cmd tea.Cmd, desc string, modes []AppMode) {
	r.bindings[canonical(seq)] = binding{cmd: cmd, desc: desc, modes: modes}
}

// Lookup returns the command bound to seq, or nil.
func (r *KeybindRegistry) Lookup(seq string) tea.Cmd {
	return r.bindings[canonical(seq)].cmd
}

// HasPrefix reports whether some longer binding continues seq.
func (r *KeybindRegistry) HasPrefix(seq string) bool {
	prefix := canonical(seq) + " "
	for s := range r.bindings {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// Hints returns every live sequence with its description key, or the
// sequence itself when it has none.
func (r *KeybindRegistry) Hints() map[string]string {
	out := make(map[string]string, len(r.bindings))
	for s, b := range r.bindings {
		if b.cmd != nil {
			out[s] = bindingDesc(s, b)
		}
	}
	return out
}

func bindingDesc(seq string, b binding) string {
	if b.desc != "" {
		return b.desc
	}
	return seq
}

// submenuLabel describes leader keys that open a submenu.
var submenuLabel = map[string]string{
	"c": "Leader.Culture",
}

// LeaderHints returns the keys that may follow currentSeq ("" meaning just
// after SPC) in mode, each with its description key. A key that opens a
// submenu is described by submenuLabel, or shown as "key…".
func (r *KeybindRegistry) LeaderHints(currentSeq string, mode AppMode) map[string]string {
	base := leaderSeq
	if currentSeq != "" {
		base = canonical(currentSeq)
	}
	out := make(map[string]string)
	for s, b := range r.bindings {
		rest, ok := strings.CutPrefix(s, base+" ")
		if !ok || b.cmd == nil || !b.offeredIn(mode) {
			continue
		}
		next, _, _ := strings.Cut(rest, " ")
		switch {
		case !r.HasPrefix(base + " " + next):
			out[next] = bindingDesc(s, b)
		case submenuLabel[next] != "":
			out[next] = submenuLabel[next]
		default:
			out[next] = next + "…"
		}
	}
	return out
}

// canonical rewrites the space key to SPC and collapses whitespace.
func canonical(seq string) string {
	parts := strings.Fields(seq)
	for i, p := range parts {
		parts[i] = seqPart(p)
	}
	return strings.Join(parts, " ")
}

// seqPart maps one tea.KeyMsg string into sequence notation.
func seqPart(s string) string {
	if s == " " || s == "space" {
		return leaderSeq
	}
	return s
}

// KeyHandler tracks a leader sequence in progress and dispatches completed
// sequences through Registry.
type KeyHandler struct {
	Registry      *KeybindRegistry
	LeaderWaiting bool
	Buffer        []string // the sequence so far, starting with SPC
}

// NewKeyHandler creates a handler with space as the leader.
func NewKeyHandler(reg *KeybindRegistry) *KeyHandler {
	return &KeyHandler{Registry: reg}
}

func (h *KeyHandler) reset() {
	h.LeaderWaiting = false
	h.Buffer = nil
}

// Handle reports whether msg belongs to the keybind system, and the command
// to run if a sequence completed. Unconsumed keys go to the focused view.
func (h *KeyHandler) Handle(msg tea.KeyMsg) (consumed bool, cmd tea.Cmd) {
	part := seqPart(msg.String())
	switch {
	case part == "esc":
		if !h.LeaderWaiting {
			return false, nil
		}
		h.reset()
		return true, nil
	case part == leaderSeq:
		h.LeaderWaiting = true
		h.Buffer = []string{leaderSeq}
		return true, nil
	case h.LeaderWaiting:
		h.Buffer = append(h.Buffer, part)
		seq := strings.Join(h.Buffer, " ")
		if c := h.Registry.Lookup(seq); c != nil {
			h.reset()
			return true, c
		}
		if !h.Registry.HasPrefix(seq) {
			h.reset()
		}
		return true, nil
	}
	if c := h.Registry.Lookup(part); c != nil {
		return true, c
	}
	return false, nil
}

// hintBindings renders hints as help bindings sorted by key, with esc last.
func hintBindings(hints map[string]string, translate func(string) string) []key.Binding {
	keys := make([]string, 0, len(hints))
	for k := range hints {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]key.Binding, 0, len(keys)+1)
	for _, k := range keys {
		out = append(out, key.NewBinding(key.WithKeys(k), key.WithHelp(k, translate(hints[k]))))
	}
	return append(out, key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", translate("Leader.Cancel"))))
}

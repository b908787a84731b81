package ui

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// BoundsFunc returns a panel's x, y, width and height for a terminal of the
// given size.
type BoundsFunc func(width, height int) (x, y, w, h int)

// Panel hosts a View within a layout.
type Panel struct {
	ID     string
	View   View
	Bounds BoundsFunc
}

// Layout arranges panels and defines focus order.
type Layout interface {
	Panels() []Panel
	FocusOrder() []string
}

const (
	panelMenu = "menu"
	panelPage = "page"

	menuPanelWidth = 30
)

// splitLayout places the menu on the left and the open page on the right.
type splitLayout struct {
	menu View
	page View
}

func (l splitLayout) Panels() []Panel {
	panels := []Panel{{
		ID:   panelMenu,
		View: l.menu,
		Bounds: func(width, height int) (int, int, int, int) {
			w := menuPanelWidth
			if width < 2*w {
				w = width / 2
			}
			return 0, 0, w, height
		},
	}}
	if l.page != nil {
		panels = append(panels, Panel{
			ID:   panelPage,
			View: l.page,
			Bounds: func(width, height int) (int, int, int, int) {
				w := menuPanelWidth
				if width < 2*w {
					w = width / 2
				}
				return w + 1, 0, width - w - 1, height
			},
		})
	}
	return panels
}

func (l splitLayout) FocusOrder() []string {
	if l.page == nil {
		return []string{panelMenu}
	}
	return []string{panelMenu, panelPage}
}

// renderLayout draws the panels of l side by side, ordered by x. Each panel
// is clipped to its bounds; the focused panel gets the highlight border.
func renderLayout(l Layout, width, height int, focused string) string {
	panels := l.Panels()
	sort.SliceStable(panels, func(i, j int) bool {
		xi, _, _, _ := panels[i].Bounds(width, height)
		xj, _, _, _ := panels[j].Bounds(width, height)
		return xi < xj
	})
	cols := make([]string, 0, len(panels))
	for _, p := range panels {
		_, _, w, h := p.Bounds(width, height)
		if w <= 2 || h <= 2 {
			continue
		}
		style := Styles.Panel
		if p.ID == focused {
			style = Styles.PanelFocused
		}
		body := lipgloss.NewStyle().MaxWidth(w - 2).MaxHeight(h - 2).Render(p.View.View())
		cols = append(cols, style.Width(w-2).Height(h-2).Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

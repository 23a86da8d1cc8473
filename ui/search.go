package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// openSearch swaps an input field into the layout. Enter runs the query
// against the active library, Escape dismisses.
func (a *App) openSearch() {
	input := tview.NewInputField().SetLabel("search: ")
	input.SetDoneFunc(func(key tcell.Key) {
		query := input.GetText()
		a.closeSearch(input)
		if key == tcell.KeyEnter && query != "" {
			go a.runSearch(query)
		}
	})
	a.searching = true
	a.rootFlex.AddItem(input, 1, 0, true)
	a.tviewApp.SetFocus(input)
}

func (a *App) closeSearch(input *tview.InputField) {
	a.searching = false
	a.rootFlex.RemoveItem(input)
	a.tviewApp.SetFocus(a.trackTable)
}

func (a *App) runSearch(query string) {
	listing, err := a.currentLibrary().Search(query)
	if err != nil {
		a.tviewApp.QueueUpdateDraw(func() {
			a.statusBar.SetText("[red]Search failed: " + tview.Escape(err.Error()))
		})
		return
	}
	a.tviewApp.QueueUpdateDraw(func() {
		a.pathStack = append(a.pathStack, "")
		a.listing = listing
		a.renderListing()
	})
}

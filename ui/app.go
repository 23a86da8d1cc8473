package ui

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/resonode/resonode/config"
	"github.com/resonode/resonode/domain"
	"github.com/resonode/resonode/library"
	"github.com/resonode/resonode/playback"
)

// Engine is the transport surface the UI drives.
type Engine interface {
	PlayFrom(playlist []domain.Track, startIndex int, username string) error
	TogglePlayPause()
	PlayNext()
	PlayPrev()
	SeekTo(pos time.Duration)
	Position() time.Duration
	Duration() time.Duration
	IsPlaying() bool
	CurrentSong() (domain.Track, bool)
}

// Downloader manages offline copies of playlists.
type Downloader interface {
	DownloadPlaylist(ctx context.Context, username, folderPath, playlistName string) error
	RemovePlaylist(playlistName string) error
}

// Connectivity exposes the link state and its transitions.
type Connectivity interface {
	IsConnected() bool
	Subscribe(func(connected bool))
}

// App represents the TUI application.
type App struct {
	tviewApp *tview.Application
	cfg      *config.Config
	ctx      context.Context
	username string

	online  library.Library
	offline library.Library
	engine  Engine
	loader  Downloader
	conn    Connectivity

	browsingOffline bool
	searching       bool
	listing         *domain.Listing
	pathStack       []string

	rootFlex    *tview.Flex
	trackTable  *tview.Table
	statusBar   *tview.TextView
	progressBar *tview.TextView
	keys        *KeyBindingManager
}

// NewApp creates the TUI application with dependency injection.
func NewApp(ctx context.Context, cfg *config.Config, username string, online, offline library.Library, engine Engine, loader Downloader, conn Connectivity) *App {
	return &App{
		tviewApp: tview.NewApplication(),
		cfg:      cfg,
		ctx:      ctx,
		username: username,
		online:   online,
		offline:  offline,
		engine:   engine,
		loader:   loader,
		conn:     conn,
		keys:     NewKeyBindingManager(),
	}
}

// Run starts the application and blocks until quit.
func (a *App) Run() error {
	a.browsingOffline = !a.conn.IsConnected()
	a.buildLayout()
	a.registerKeyBindings()
	a.conn.Subscribe(a.onConnectivityChange)

	go a.updateProgressBar()
	go a.loadListing("")

	log.Println("start resonode ui")
	return a.tviewApp.Run()
}

// Stop stops the application.
func (a *App) Stop() {
	if a.tviewApp != nil {
		a.tviewApp.Stop()
	}
}

// OnSongChanged implements playback.Listener.
func (a *App) OnSongChanged(track domain.Track, playing bool) {
	go a.tviewApp.QueueUpdateDraw(func() {
		a.statusBar.SetText(FormatNowPlaying(track, playing, a.conn.IsConnected()))
	})
}

// OnPlaybackStateChanged implements playback.Listener.
func (a *App) OnPlaybackStateChanged(playing bool) {
	go a.tviewApp.QueueUpdateDraw(func() {
		if track, ok := a.engine.CurrentSong(); ok {
			a.statusBar.SetText(FormatNowPlaying(track, playing, a.conn.IsConnected()))
		}
	})
}

// Notify implements playback.Notifier.
func (a *App) Notify(message string) {
	go a.tviewApp.QueueUpdateDraw(func() {
		a.statusBar.SetText("[red]" + tview.Escape(message))
	})
}

func (a *App) buildLayout() {
	a.trackTable = tview.NewTable().SetSelectable(true, false)
	a.trackTable.SetBorder(true)
	a.trackTable.SetSelectedFunc(func(row, col int) { a.openRow(row) })

	a.statusBar = tview.NewTextView().SetDynamicColors(true)
	a.progressBar = tview.NewTextView().SetDynamicColors(true)

	a.rootFlex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.trackTable, 0, 1, true).
		AddItem(a.progressBar, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.tviewApp.SetRoot(a.rootFlex, true)
	a.tviewApp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if a.searching {
			return event // the search field owns the keyboard
		}
		if a.keys.HandleKey(event) {
			return nil
		}
		return event
	})
}

func (a *App) registerKeyBindings() {
	a.keys.RegisterKeyBinding(KeyAction{name: "quit", handler: a.Stop}, nil, []rune{'q'})
	a.keys.RegisterKeyBinding(KeyAction{name: "toggle", handler: a.engine.TogglePlayPause}, nil, []rune{' '})
	a.keys.RegisterKeyBinding(KeyAction{name: "next", handler: a.engine.PlayNext}, nil, []rune{'n'})
	a.keys.RegisterKeyBinding(KeyAction{name: "prev", handler: a.engine.PlayPrev}, nil, []rune{'p'})
	a.keys.RegisterKeyBinding(KeyAction{name: "back", handler: a.goBack}, []tcell.Key{tcell.KeyEscape}, nil)
	a.keys.RegisterKeyBinding(KeyAction{name: "download", handler: a.downloadSelected}, nil, []rune{'d'})
	a.keys.RegisterKeyBinding(KeyAction{name: "evict", handler: a.evictSelected}, nil, []rune{'x'})
	a.keys.RegisterKeyBinding(KeyAction{name: "offlineMode", handler: a.toggleOfflineBrowsing}, nil, []rune{'o'})
	a.keys.RegisterKeyBinding(KeyAction{name: "search", handler: a.openSearch}, nil, []rune{'/'})
	a.keys.RegisterKeyBinding(KeyAction{name: "seekFwd", handler: func() { a.seekBy(10 * time.Second) }}, []tcell.Key{tcell.KeyRight}, nil)
	a.keys.RegisterKeyBinding(KeyAction{name: "seekBack", handler: func() { a.seekBy(-10 * time.Second) }}, []tcell.Key{tcell.KeyLeft}, nil)
}

func (a *App) currentLibrary() library.Library {
	if a.browsingOffline {
		return a.offline
	}
	return a.online
}

// loadListing fetches a folder asynchronously and rerenders the table.
func (a *App) loadListing(folder string) {
	listing, err := a.currentLibrary().List(folder)
	if err != nil {
		a.tviewApp.QueueUpdateDraw(func() {
			a.statusBar.SetText("[red]Failed to load: " + tview.Escape(err.Error()))
		})
		return
	}
	a.tviewApp.QueueUpdateDraw(func() {
		a.listing = listing
		a.renderListing()
	})
}

func (a *App) onConnectivityChange(connected bool) {
	go a.tviewApp.QueueUpdateDraw(func() {
		if !connected {
			a.browsingOffline = true
			a.pathStack = nil
			go a.loadListing("")
			return
		}
		// back online: return to the server library root
		a.browsingOffline = false
		a.pathStack = nil
		go a.loadListing("")
	})
}

func (a *App) toggleOfflineBrowsing() {
	if !a.browsingOffline && !a.conn.IsConnected() {
		return // nothing to go back online to
	}
	a.browsingOffline = !a.browsingOffline
	a.pathStack = nil
	go a.loadListing("")
}

// openRow plays a file or descends into a folder.
func (a *App) openRow(row int) {
	if a.listing == nil || row < 0 || row >= len(a.listing.Tracks) {
		return
	}
	track := a.listing.Tracks[row]
	if track.IsFolder() {
		a.pathStack = append(a.pathStack, a.listing.CurrentPath)
		go a.loadListing(a.folderPath(track))
		return
	}
	if err := a.engine.PlayFrom(a.listing.Tracks, row, a.username); err != nil {
		a.statusBar.SetText("[red]" + tview.Escape(err.Error()))
	}
}

// folderPath resolves the request path for a folder row. Offline listings
// key playlists by name, remote listings by server path.
func (a *App) folderPath(track domain.Track) string {
	if a.browsingOffline {
		return track.Name
	}
	return track.Path
}

func (a *App) goBack() {
	if len(a.pathStack) == 0 {
		return
	}
	last := a.pathStack[len(a.pathStack)-1]
	a.pathStack = a.pathStack[:len(a.pathStack)-1]
	go a.loadListing(last)
}

func (a *App) selectedFolder() (domain.Track, bool) {
	if a.listing == nil {
		return domain.Track{}, false
	}
	row, _ := a.trackTable.GetSelection()
	if row < 0 || row >= len(a.listing.Tracks) || !a.listing.Tracks[row].IsFolder() {
		return domain.Track{}, false
	}
	return a.listing.Tracks[row], true
}

func (a *App) downloadSelected() {
	folder, ok := a.selectedFolder()
	if !ok || a.browsingOffline {
		return
	}
	a.statusBar.SetText("[yellow]Downloading " + tview.Escape(folder.Name) + "...")
	go func() {
		err := a.loader.DownloadPlaylist(a.ctx, a.username, folder.Path, folder.Name)
		a.tviewApp.QueueUpdateDraw(func() {
			if err != nil {
				a.statusBar.SetText("[red]Download failed: " + tview.Escape(err.Error()))
				return
			}
			a.statusBar.SetText("[green]Downloaded " + tview.Escape(folder.Name))
		})
	}()
}

func (a *App) evictSelected() {
	folder, ok := a.selectedFolder()
	if !ok || !a.browsingOffline {
		return
	}
	go func() {
		err := a.loader.RemovePlaylist(folder.Name)
		a.tviewApp.QueueUpdateDraw(func() {
			if err != nil {
				a.statusBar.SetText("[red]Remove failed: " + tview.Escape(err.Error()))
				return
			}
			go a.loadListing("")
		})
	}()
}

func (a *App) seekBy(delta time.Duration) {
	pos := a.engine.Position() + delta
	if pos < 0 {
		pos = 0
	}
	a.engine.SeekTo(pos)
}

func (a *App) renderListing() {
	a.trackTable.Clear()
	if a.listing == nil {
		return
	}
	a.trackTable.SetTitle(FormatListingTitle(a.listing, a.conn.IsConnected()))
	for i, track := range a.listing.Tracks {
		cell := tview.NewTableCell(FormatTrackLine(track)).SetExpansion(1)
		if a.cfg.UI.MaxColumnWidth > 0 {
			cell.SetMaxWidth(a.cfg.UI.MaxColumnWidth)
		}
		a.trackTable.SetCell(i, 0, cell)
	}
	if len(a.listing.Tracks) > 0 {
		a.trackTable.Select(0, 0)
	}
}

// updateProgressBar refreshes the position readout once a second.
func (a *App) updateProgressBar() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.tviewApp.QueueUpdateDraw(func() {
				if !a.engine.IsPlaying() {
					return
				}
				a.progressBar.SetText(fmt.Sprintf("%s / %s",
					FormatDuration(int(a.engine.Position()/time.Second)),
					FormatDuration(int(a.engine.Duration()/time.Second))))
			})
		case <-a.ctx.Done():
			return
		}
	}
}

var _ playback.Listener = (*App)(nil)
var _ playback.Notifier = (*App)(nil)

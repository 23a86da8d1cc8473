package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/resonode/resonode/domain"
)

// FormatDuration converts seconds to MM:SS format.
func FormatDuration(seconds int) string {
	minutes := seconds / 60
	seconds = seconds % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// FormatTrackLine renders one browser row.
func FormatTrackLine(track domain.Track) string {
	if track.IsFolder() {
		return "[yellow]▸ " + tview.Escape(track.Name)
	}
	line := tview.Escape(track.Name)
	if track.Artist != "" {
		line += " [gray]— " + tview.Escape(track.Artist)
	}
	return line
}

// FormatNowPlaying renders the status bar line for the current track.
func FormatNowPlaying(track domain.Track, playing, connected bool) string {
	state := "⏸"
	if playing {
		state = "▶"
	}
	line := fmt.Sprintf("[white]%s %s", state, tview.Escape(track.Name))
	if track.Artist != "" {
		line += " [gray]" + tview.Escape(track.Artist)
	}
	if !connected {
		line += " [red][offline]"
	}
	return line
}

// FormatListingTitle labels the browser with the listing's origin.
func FormatListingTitle(listing *domain.Listing, connected bool) string {
	label := modeLabel(listing.Mode)
	if listing.CurrentPath != "" {
		label += ": " + listing.CurrentPath
	}
	if !connected {
		label += " (offline)"
	}
	return " " + label + " "
}

func modeLabel(mode domain.ListingMode) string {
	switch mode {
	case domain.ListingPrivate:
		return "My Music"
	case domain.ListingVault:
		return "Vault"
	case domain.ListingOffline:
		return "Downloads"
	case domain.ListingSearch:
		return "Search"
	default:
		return "Library"
	}
}

package tui

// Key binding constants used in handleKey.
const (
	KeyQuit      = "q"
	KeyQuitUpper = "Q"
	KeyCtrlC     = "ctrl+c"
	KeyLeft      = "left"
	KeyRight     = "right"
	KeyH         = "h"
	KeyL         = "l"
	KeyPageUp    = "pgup"
	KeyPageDown  = "pgdown"
	KeyHome      = "home"
	KeyEnd       = "end"
)

// panStep is how many days one left/right press moves the window
const panStep = 7

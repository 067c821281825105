package tui

import (
	"github.com/wonny/fibivi/internal/palette"
	"github.com/wonny/fibivi/internal/transform"
)

// ResultMsg replaces the chart data, e.g. after the followed file changed.
type ResultMsg struct {
	Result    *transform.Result
	Selection palette.Selection
}

// ReloadErrorMsg reports a failed reload. The previous chart stays up.
type ReloadErrorMsg struct {
	Err error
}

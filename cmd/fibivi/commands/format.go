package commands

import (
	"fmt"
	"io"
	"os"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// out is where command output goes; tests swap it
var out io.Writer = os.Stdout

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Fprintln(out, "───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")
}

// PrintHeader prints a titled block header
func PrintHeader(title string) {
	fmt.Fprintln(out)
	PrintDoubleSeparator()
	fmt.Fprintf(out, "  %s\n", title)
	PrintSeparator()
}

// PrintStep prints a progress line
func PrintStep(message string) {
	fmt.Fprintln(out, message)
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "⚠️  %s\n", message)
	fmt.Fprintln(out)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Fprintf(out, "✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(out, "❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Fprintf(out, "ℹ️  %s\n", message)
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Fprintf(out, "   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Fprintf(out, "   %-*s : %s\n", keyWidth, key, value)
}

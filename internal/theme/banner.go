package theme

import (
	"fmt"
	"io"
)

// Banner returns the hnlingo banner shown by the root command and version.
func Banner() string {
	const orange = "\033[38;5;208m"
	const cyan = "\033[36m"
	const reset = "\033[0m"

	return "" +
		orange + "  ┌───┐\n" + reset +
		orange + "  │ Y │ " + reset + "hnlingo\n" +
		orange + "  └───┘ " + reset + cyan + "Hacker News, translated\n" + reset
}

// PrintBanner writes the banner to w.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, Banner())
}

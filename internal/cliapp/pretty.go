package cliapp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/tidwall/pretty"

	"github.com/swwwgo/swwwgo/internal/ipc"
)

var (
	babyBlue = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	green    = lipgloss.NewStyle().Foreground(lipgloss.Color("76"))
)

// PrintVersion renders the version banner root.go prints for --version,
// generalized to the two swww binaries.
func PrintVersion(bin, version string) {
	fmt.Printf("%s version %s\n",
		babyBlue.Render(bin),
		green.Render(strings.Trim(version, "\n\r ")))
}

// PrintJSONColored dumps data as syntax-colored JSON, matching
// cmd/status.go's diagnostic output for --show-config and similar dumps.
func PrintJSONColored(data any) {
	j, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		log.Errorf("cliapp: marshalling JSON: %v", err)
		return
	}
	fmt.Println(string(pretty.Color(j, nil)))
}

// PrintQuery renders spec.md §6's textual query format:
// "NAME: WxH, scale: S, currently displaying: image: PATH | color: RRGGBB"
func PrintQuery(info ipc.InfoReply) {
	for _, o := range info.Outputs {
		scale := float64(o.Scale120) / 120
		var content string
		switch o.ContentKind {
		case "image":
			content = fmt.Sprintf("image: %s", o.ContentPath)
		case "color":
			content = fmt.Sprintf("color: %s", o.ContentColor)
		default:
			content = "nothing"
		}
		fmt.Printf("%s: %dx%d, scale: %.2f, currently displaying: %s\n",
			yellow.Render(o.Name), o.Width, o.Height, scale, content)
	}
}

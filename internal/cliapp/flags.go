// Package cliapp holds the cobra/viper plumbing shared by cmd/swww and
// cmd/swww-daemon: shared flag registration, config file loading, and the
// colored terminal output helpers, adapted from
// matjam-smoothpaper/internal/cli.
package cliapp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/swwwgo/swwwgo/internal/transition"
)

// RegisterOutputFlags adds the -o/--outputs, -n/--namespace, -a/--all flags
// spec.md §6 shares across every client subcommand.
func RegisterOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("outputs", "o", nil, "comma-separated output names (default: all)")
	cmd.Flags().StringP("namespace", "n", "", "daemon namespace (repeatable across daemons)")
	cmd.Flags().BoolP("all", "a", false, "target every known output explicitly")
}

// ResolveOutputs reads --outputs/--all off cmd, returning nil (meaning "all
// outputs") unless --outputs was given without --all.
func ResolveOutputs(cmd *cobra.Command) ([]string, error) {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return nil, err
	}
	if all {
		return nil, nil
	}
	return cmd.Flags().GetStringSlice("outputs")
}

// ResolveNamespace reads --namespace, falling back to viper (config file)
// when the flag was left at its zero value.
func ResolveNamespace(cmd *cobra.Command) string {
	ns, _ := cmd.Flags().GetString("namespace")
	if ns != "" {
		return ns
	}
	return viper.GetString("namespace")
}

// RegisterImgFlags adds the img subcommand's own flags, binding each one's
// environment-variable default per spec.md §6's env var list — the
// SWWW_TRANSITION_* names don't follow viper.AutomaticEnv's mechanical
// upper-casing, so each is bound explicitly with viper.BindEnv.
func RegisterImgFlags(cmd *cobra.Command) {
	cmd.Flags().String("resize", "fit", "no|crop|fit|stretch")
	cmd.Flags().String("fill-color", "", "rrggbb fill color for letterboxed areas")
	cmd.Flags().String("filter", "lanczos3", "Nearest|Bilinear|CatmullRom|Mitchell|Lanczos3")

	cmd.Flags().String("transition-type", "simple", "none|simple|fade|wipe|wave|grow|outer|center|any|random|left|right|top|bottom")
	cmd.Flags().Uint8("transition-step", 90, "transition step size, 1..255")
	cmd.Flags().Uint8("transition-fps", 60, "transition frame rate, 1..255")
	cmd.Flags().Float64("transition-duration", 3, "transition duration in seconds")
	cmd.Flags().String("transition-bezier", "", "x1,y1,x2,y2 cubic-bezier easing control points")
	cmd.Flags().Float64("transition-angle", 45, "wipe angle in degrees")
	cmd.Flags().String("transition-pos", "center", "x,y | x%,y% | center|top|bottom|left|right|top-left|...")
	cmd.Flags().String("transition-wave", "20,20", "w,h wave tile size")
	cmd.Flags().Bool("invert-y", false, "flip transition-pos's Y origin to the bottom edge")

	_ = viper.BindEnv("transition-type", "SWWW_TRANSITION")
	_ = viper.BindEnv("transition-fps", "SWWW_TRANSITION_FPS")
	_ = viper.BindEnv("transition-step", "SWWW_TRANSITION_STEP")
	_ = viper.BindEnv("transition-duration", "SWWW_TRANSITION_DURATION")
	_ = viper.BindEnv("transition-bezier", "SWWW_TRANSITION_BEZIER")
	_ = viper.BindEnv("transition-pos", "SWWW_TRANSITION_POS")
}

// namedPositions maps spec.md §6's --transition-pos keyword aliases to
// percentage-based positions, matching original_source's named anchors.
var namedPositions = map[string]transition.Position{
	"center":       transition.CenterPosition,
	"top":          {X: 50, Y: 0, Percentage: true},
	"bottom":       {X: 50, Y: 100, Percentage: true},
	"left":         {X: 0, Y: 50, Percentage: true},
	"right":        {X: 100, Y: 50, Percentage: true},
	"top-left":     {X: 0, Y: 0, Percentage: true},
	"top-right":    {X: 100, Y: 0, Percentage: true},
	"bottom-left":  {X: 0, Y: 100, Percentage: true},
	"bottom-right": {X: 100, Y: 100, Percentage: true},
}

// ParsePosition parses a --transition-pos value: a named anchor, or an
// "x,y" pair (percentages if either coordinate carries a trailing '%').
func ParsePosition(s string) (transition.Position, error) {
	if p, ok := namedPositions[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p, nil
	}
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return transition.Position{}, fmt.Errorf("cliapp: invalid --transition-pos %q", s)
	}
	pct := strings.HasSuffix(parts[0], "%") || strings.HasSuffix(parts[1], "%")
	x, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(parts[0]), "%"), 64)
	if err != nil {
		return transition.Position{}, fmt.Errorf("cliapp: invalid --transition-pos %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(parts[1]), "%"), 64)
	if err != nil {
		return transition.Position{}, fmt.Errorf("cliapp: invalid --transition-pos %q: %w", s, err)
	}
	return transition.Position{X: x, Y: y, Percentage: pct}, nil
}

// parseWaveSize parses a --transition-wave "w,h" value.
func parseWaveSize(s string) (w, h int, err error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("cliapp: invalid --transition-wave %q", s)
	}
	wi, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("cliapp: invalid --transition-wave %q: %w", s, err)
	}
	hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("cliapp: invalid --transition-wave %q: %w", s, err)
	}
	return wi, hi, nil
}

// parseBezier parses a --transition-bezier "x1,y1,x2,y2" value. An empty
// string yields the zero Bezier (linear easing, transition.go's default).
func parseBezier(s string) ([4]float64, error) {
	var out [4]float64
	if s == "" {
		return out, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return out, fmt.Errorf("cliapp: invalid --transition-bezier %q, want x1,y1,x2,y2", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, fmt.Errorf("cliapp: invalid --transition-bezier %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}

// ResolveTransition builds a transition.Descriptor from cmd's img flags,
// falling back to viper (env-var-bound defaults) for anything left at its
// flag default.
func ResolveTransition(cmd *cobra.Command) (transition.Descriptor, error) {
	typ, _ := cmd.Flags().GetString("transition-type")
	if cmd.Flags().Changed("transition-type") {
		// explicit flag wins over env
	} else if v := viper.GetString("transition-type"); v != "" {
		typ = v
	}

	step, _ := cmd.Flags().GetUint8("transition-step")
	fps, _ := cmd.Flags().GetUint8("transition-fps")
	durationSec, _ := cmd.Flags().GetFloat64("transition-duration")
	bezierStr, _ := cmd.Flags().GetString("transition-bezier")
	angle, _ := cmd.Flags().GetFloat64("transition-angle")
	posStr, _ := cmd.Flags().GetString("transition-pos")
	waveStr, _ := cmd.Flags().GetString("transition-wave")
	invertY, _ := cmd.Flags().GetBool("invert-y")

	if !cmd.Flags().Changed("transition-step") && viper.IsSet("transition-step") {
		step = uint8(viper.GetUint("transition-step"))
	}
	if !cmd.Flags().Changed("transition-fps") && viper.IsSet("transition-fps") {
		fps = uint8(viper.GetUint("transition-fps"))
	}
	if !cmd.Flags().Changed("transition-duration") && viper.IsSet("transition-duration") {
		durationSec = viper.GetFloat64("transition-duration")
	}
	if !cmd.Flags().Changed("transition-bezier") && viper.IsSet("transition-bezier") {
		bezierStr = viper.GetString("transition-bezier")
	}
	if !cmd.Flags().Changed("transition-pos") && viper.IsSet("transition-pos") {
		posStr = viper.GetString("transition-pos")
	}

	bezier, err := parseBezier(bezierStr)
	if err != nil {
		return transition.Descriptor{}, err
	}
	pos, err := ParsePosition(posStr)
	if err != nil {
		return transition.Descriptor{}, err
	}
	waveW, waveH, err := parseWaveSize(waveStr)
	if err != nil {
		return transition.Descriptor{}, err
	}

	return transition.Descriptor{
		Type:       transition.Type(typ),
		Step:       step,
		FPS:        fps,
		DurationMS: uint32(durationSec * 1000),
		Bezier:     bezier,
		AngleDeg:   angle,
		Pos:        pos,
		InvertY:    invertY,
		WaveSize:   [2]int{waveW, waveH},
	}, nil
}

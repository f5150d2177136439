package cliapp

import (
	"testing"

	"github.com/spf13/cobra"

	"github.com/swwwgo/swwwgo/internal/transition"
)

func TestParsePositionNamedAnchors(t *testing.T) {
	p, err := ParsePosition("top-right")
	if err != nil {
		t.Fatal(err)
	}
	if p.X != 100 || p.Y != 0 || !p.Percentage {
		t.Fatalf("got %+v", p)
	}
}

func TestParsePositionCaseInsensitive(t *testing.T) {
	p, err := ParsePosition("  CENTER  ")
	if err != nil {
		t.Fatal(err)
	}
	if p != transition.CenterPosition {
		t.Fatalf("got %+v, want %+v", p, transition.CenterPosition)
	}
}

func TestParsePositionCoordinatePair(t *testing.T) {
	p, err := ParsePosition("10,20")
	if err != nil {
		t.Fatal(err)
	}
	if p.X != 10 || p.Y != 20 || p.Percentage {
		t.Fatalf("got %+v", p)
	}
}

func TestParsePositionPercentagePair(t *testing.T) {
	p, err := ParsePosition("10%,20%")
	if err != nil {
		t.Fatal(err)
	}
	if p.X != 10 || p.Y != 20 || !p.Percentage {
		t.Fatalf("got %+v", p)
	}
}

func TestParsePositionRejectsGarbage(t *testing.T) {
	if _, err := ParsePosition("nowhere"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestParseWaveSize(t *testing.T) {
	w, h, err := parseWaveSize("30, 40")
	if err != nil {
		t.Fatal(err)
	}
	if w != 30 || h != 40 {
		t.Fatalf("got %d,%d", w, h)
	}
}

func TestParseWaveSizeRejectsMissingComma(t *testing.T) {
	if _, _, err := parseWaveSize("30"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestParseBezierEmptyIsZeroValue(t *testing.T) {
	b, err := parseBezier("")
	if err != nil {
		t.Fatal(err)
	}
	if b != ([4]float64{}) {
		t.Fatalf("got %+v", b)
	}
}

func TestParseBezierFourPoints(t *testing.T) {
	b, err := parseBezier("0.1,0.2,0.3,0.4")
	if err != nil {
		t.Fatal(err)
	}
	want := [4]float64{0.1, 0.2, 0.3, 0.4}
	if b != want {
		t.Fatalf("got %+v, want %+v", b, want)
	}
}

func TestParseBezierRejectsWrongArity(t *testing.T) {
	if _, err := parseBezier("0.1,0.2"); err == nil {
		t.Fatal("expected an error")
	}
}

func newImgCmdForTest() *cobra.Command {
	cmd := &cobra.Command{Use: "img"}
	RegisterOutputFlags(cmd)
	RegisterImgFlags(cmd)
	return cmd
}

func TestResolveTransitionDefaults(t *testing.T) {
	cmd := newImgCmdForTest()
	desc, err := ResolveTransition(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if desc.Type != "simple" {
		t.Fatalf("got type %q", desc.Type)
	}
	if desc.Step != 90 || desc.FPS != 60 {
		t.Fatalf("got step=%d fps=%d", desc.Step, desc.FPS)
	}
	if desc.DurationMS != 3000 {
		t.Fatalf("got duration %dms", desc.DurationMS)
	}
	if desc.Pos != transition.CenterPosition {
		t.Fatalf("got pos %+v", desc.Pos)
	}
	if desc.WaveSize != [2]int{20, 20} {
		t.Fatalf("got wave %+v", desc.WaveSize)
	}
}

func TestResolveTransitionExplicitFlagWinsOverEnv(t *testing.T) {
	t.Setenv("SWWW_TRANSITION", "wipe")
	cmd := newImgCmdForTest()
	if err := cmd.Flags().Set("transition-type", "grow"); err != nil {
		t.Fatal(err)
	}
	desc, err := ResolveTransition(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if desc.Type != "grow" {
		t.Fatalf("got type %q, want grow", desc.Type)
	}
}

func TestResolveOutputsAllOverridesOutputsList(t *testing.T) {
	cmd := &cobra.Command{Use: "query"}
	RegisterOutputFlags(cmd)
	if err := cmd.Flags().Set("outputs", "DP-1,DP-2"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("all", "true"); err != nil {
		t.Fatal(err)
	}
	outputs, err := ResolveOutputs(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if outputs != nil {
		t.Fatalf("got %v, want nil (all outputs)", outputs)
	}
}

func TestResolveOutputsListWithoutAll(t *testing.T) {
	cmd := &cobra.Command{Use: "query"}
	RegisterOutputFlags(cmd)
	if err := cmd.Flags().Set("outputs", "DP-1,DP-2"); err != nil {
		t.Fatal(err)
	}
	outputs, err := ResolveOutputs(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if len(outputs) != 2 || outputs[0] != "DP-1" || outputs[1] != "DP-2" {
		t.Fatalf("got %v", outputs)
	}
}

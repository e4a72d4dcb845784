package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/jjbbllkk/acidgen/internal/audio"
	"github.com/jjbbllkk/acidgen/internal/engine"
	"github.com/jjbbllkk/acidgen/internal/tui"
)

var (
	playSeed      uint32
	playBPM       float64
	playStatePath string
	playMIDIPort  string

	playLength  int
	playDensity float64
	playSpread  float64
	playAccent  float64
	playSlide   float64
	playScale   string
	playRoot    string
	playOctave  int
	playRest    bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start the interactive sequencer",
	Long: `Start the interactive sequencer with audio output.

The pattern plays through a built-in synthesizer voice. Pass --midi to also
mirror the notes to a hardware or virtual MIDI output port.

Example:
  acidgen play --seed 12345 --bpm 138 --scale phrygian
`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().Uint32Var(&playSeed, "seed", 0, "Pattern seed (default: derived from the clock)")
	playCmd.Flags().Float64Var(&playBPM, "bpm", 120, "Internal clock tempo")
	playCmd.Flags().StringVar(&playStatePath, "state", "acidgen_state.json", "Path for saved state (s/o keys)")
	playCmd.Flags().StringVar(&playMIDIPort, "midi", "", "MIDI output port to mirror notes to (substring match)")
	addParamFlags(playCmd, &playLength, &playDensity, &playSpread, &playAccent, &playSlide,
		&playScale, &playRoot, &playOctave, &playRest)
	rootCmd.AddCommand(playCmd)
}

// addParamFlags registers the live-control flags shared by play and render.
func addParamFlags(cmd *cobra.Command, length *int, density, spread, accent, slide *float64,
	scale, root *string, octave *int, rest *bool) {
	cmd.Flags().IntVar(length, "length", 16, "Pattern length in steps (1-64)")
	cmd.Flags().Float64Var(density, "density", 50, "Rhythmic density 0-100")
	cmd.Flags().Float64Var(spread, "spread", 50, "Melodic spread 0-100")
	cmd.Flags().Float64Var(accent, "accent", 50, "Accent density 0-100")
	cmd.Flags().Float64Var(slide, "slide", 30, "Slide density 0-100")
	cmd.Flags().StringVar(scale, "scale", "Minor", "Scale name (see 'acidgen scales')")
	cmd.Flags().StringVar(root, "root", "C", "Root note (C, C#, D, ...)")
	cmd.Flags().IntVar(octave, "octave", 0, "Octave offset -2..2")
	cmd.Flags().BoolVar(rest, "rest-outside-spread", false, "Rest instead of quantizing to the root outside the spread")
}

// paramsFromFlags validates the shared flags into engine params.
func paramsFromFlags(length int, density, spread, accent, slide float64,
	scale, root string, octave int, rest bool) (engine.Params, error) {
	sc, err := scaleByName(scale)
	if err != nil {
		return engine.Params{}, err
	}
	rn, err := rootByName(root)
	if err != nil {
		return engine.Params{}, err
	}
	return engine.Params{
		PatternLength:     length,
		Density:           density,
		Spread:            spread,
		AccentDensity:     accent,
		SlideDensity:      slide,
		Scale:             sc,
		RootNote:          rn,
		OctaveOffset:      octave,
		RestOutsideSpread: rest,
	}, nil
}

func rootByName(name string) (int, error) {
	names := []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	want := strings.ToUpper(strings.TrimSpace(name))
	// Accept the flat spellings too.
	flats := map[string]string{"DB": "C#", "EB": "D#", "GB": "F#", "AB": "G#", "BB": "A#"}
	if f, ok := flats[want]; ok {
		want = f
	}
	for i, n := range names {
		if n == want {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown root note %q", name)
}

func runPlay(cmd *cobra.Command, args []string) error {
	params, err := paramsFromFlags(playLength, playDensity, playSpread, playAccent, playSlide,
		playScale, playRoot, playOctave, playRest)
	if err != nil {
		return err
	}

	seed := playSeed
	if !cmd.Flags().Changed("seed") {
		seed = uint32(time.Now().UnixNano())
	}

	eng := engine.New(seed)
	player, err := audio.NewPlayer(eng, params, playBPM)
	if err != nil {
		return fmt.Errorf("opening audio output: %w", err)
	}
	defer player.Close()

	if playMIDIPort != "" {
		drv, out, err := openMIDIOut(playMIDIPort)
		if err != nil {
			return err
		}
		defer drv.Close()
		if err := out.Open(); err != nil {
			return fmt.Errorf("opening MIDI port %q: %w", out.String(), err)
		}
		send, err := midi.SendTo(out)
		if err != nil {
			return fmt.Errorf("opening MIDI port %q: %w", out.String(), err)
		}
		player.SetMIDISend(send)
	}

	p := tea.NewProgram(tui.NewModel(player, playStatePath), tea.WithAltScreen())

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// openMIDIOut finds the first output port whose name contains the given
// string, case-insensitively.
func openMIDIOut(name string) (*rtmididrv.Driver, drivers.Out, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, nil, fmt.Errorf("initializing MIDI driver: %w", err)
	}
	outs, err := drv.Outs()
	if err != nil {
		drv.Close()
		return nil, nil, fmt.Errorf("listing MIDI outputs: %w", err)
	}
	want := strings.ToLower(name)
	for _, out := range outs {
		if strings.Contains(strings.ToLower(out.String()), want) {
			return drv, out, nil
		}
	}
	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	drv.Close()
	return nil, nil, fmt.Errorf("no MIDI output matching %q (available: %s)", name, strings.Join(names, ", "))
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/discgenius/internal/synth"
	"github.com/himanishpuri/discgenius/pkg/discgenius"
	"github.com/himanishpuri/discgenius/pkg/discgenius/audio"
	"github.com/himanishpuri/discgenius/pkg/discgenius/mix"
	"github.com/himanishpuri/discgenius/pkg/discgenius/plot"
	"github.com/himanishpuri/discgenius/pkg/discgenius/score"
	"github.com/himanishpuri/discgenius/pkg/discgenius/transition"
	"github.com/himanishpuri/discgenius/pkg/logger"
	"github.com/himanishpuri/discgenius/pkg/models"
)

// Global flags
var (
	analysisDir string
	alignedDir  string
	tempDir     string
	dbPath      string
	sampleRate  int
	mixArea     float64
)

func init() {
	// Global flags that can be used with any command
	flag.StringVar(&analysisDir, "analysis", getEnvOrDefault("DISCGENIUS_ANALYSIS_DIR", "analysis"), "Directory for cached beat grids")
	flag.StringVar(&alignedDir, "aligned", getEnvOrDefault("DISCGENIUS_ALIGNED_DIR", "aligned"), "Directory for cached tempo-aligned audio")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("DISCGENIUS_TEMP_DIR", "/tmp"), "Directory for temporary audio conversion files")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("DISCGENIUS_DB_PATH", ""), "Store beat grids in this SQLite file instead of JSON files")
	flag.IntVar(&sampleRate, "rate", 22050, "Audio sample rate for processing (0 keeps each file's rate)")
	flag.Float64Var(&mixArea, "mix-area", 0.1, "Fraction of candidates eligible for selection")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// createService creates a new DiscGenius service with configured options
func createService() (discgenius.Service, error) {
	opts := []discgenius.Option{
		discgenius.WithAnalysisDir(analysisDir),
		discgenius.WithAlignedDir(alignedDir),
		discgenius.WithTempDir(tempDir),
		discgenius.WithSampleRate(sampleRate),
		discgenius.WithMixArea(mixArea),
		discgenius.WithProgress(func(percent int, stage string) {
			fmt.Printf("   [%3d%%] %s\n", percent, stage)
		}),
	}
	if dbPath != "" {
		opts = append(opts, discgenius.WithSQLiteCache(dbPath))
	}
	return discgenius.NewService(opts...)
}

func mustService() discgenius.Service {
	fmt.Println("\n🔧 Initializing service...")
	svc, err := createService()
	if err != nil {
		fail("Failed to create service", err)
	}
	return svc
}

func fail(msg string, err error) {
	fmt.Printf("❌ %s: %v\n", msg, err)
	logger.GetLogger().Errorf("%s: %v", msg, err)
	os.Exit(1)
}

func main() {
	// Initialize logger
	log := logger.GetLogger()

	// Print banner
	printBanner()

	flag.Usage = printUsage
	flag.Parse()
	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]
	log.Infof("Executing command: %s", command)

	switch command {
	case "beats":
		handleBeats(args)
	case "align":
		handleAlign(args)
	case "transition":
		handleTransition(args)
	case "mix":
		handleMix(args)
	case "plot":
		handlePlot(args)
	case "synth":
		handleSynth(args)
	case "scenarios":
		handleScenarios()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
 ____  _           ____            _
|  _ \(_)___  ___ / ___| ___ _ __ (_)_   _ ___
| | | | / __|/ __| |  _ / _ \ '_ \| | | | / __|
| |_| | \__ \ (__| |_| |  __/ | | | | |_| \__ \
|____/|_|___/\___|\____|\___|_| |_|_|\__,_|___/

          DJ Transition Finder CLI Tool
`
	fmt.Println(banner)
}

// splitArgs separates the leading positional arguments from the flags that
// follow them.
func splitArgs(args []string, positional int) ([]string, []string) {
	var pos []string
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") || len(pos) == positional {
			return pos, args[i:]
		}
		pos = append(pos, arg)
	}
	return pos, nil
}

// transitionFlags registers the options shared by transition and mix.
type transitionFlags struct {
	length, midpoint *int
	bpm              *float64
	entry, exit      *float64
	points           *string
}

func addTransitionFlags(fs *flag.FlagSet) transitionFlags {
	return transitionFlags{
		length:   fs.Int("length", 32, "Transition length in beats"),
		midpoint: fs.Int("midpoint", 16, "Beats from transition start to midpoint"),
		bpm:      fs.Float64("bpm", 0, "Mix tempo (0 = tempo of the first track)"),
		entry:    fs.Float64("entry", 0.3, "Fraction of the incoming track analyzed from its start"),
		exit:     fs.Float64("exit", 0.7, "Fraction of the outgoing track analyzed up to its end"),
		points:   fs.String("points", "", "Explicit transition points a,c,d,e in seconds"),
	}
}

func (f transitionFlags) request(a, b *models.Track) (discgenius.TransitionRequest, error) {
	req := discgenius.TransitionRequest{
		TrackA:           a,
		TrackB:           b,
		TransitionLength: *f.length,
		Midpoint:         *f.midpoint,
		DesiredBPM:       *f.bpm,
		EntryFraction:    *f.entry,
		ExitFraction:     *f.exit,
	}
	if *f.points == "" {
		return req, nil
	}

	parts := strings.Split(*f.points, ",")
	if len(parts) != 4 {
		return req, fmt.Errorf("--points needs four values a,c,d,e, got %d", len(parts))
	}
	var v [4]float64
	for i, p := range parts {
		x, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return req, fmt.Errorf("invalid point %q: %w", p, err)
		}
		v[i] = x
	}
	req.Points = &models.TransitionPoints{A: v[0], C: v[1], D: v[2], E: v[3]}
	return req, nil
}

func loadPair(ctx context.Context, svc discgenius.Service, pathA, pathB string) (*models.Track, *models.Track) {
	fmt.Println("🎵 Loading tracks...")
	a, err := svc.LoadTrack(ctx, pathA)
	if err != nil {
		fail("Failed to load track A", err)
	}
	b, err := svc.LoadTrack(ctx, pathB)
	if err != nil {
		fail("Failed to load track B", err)
	}
	return a, b
}

func handleBeats(args []string) {
	pos, flagArgs := splitArgs(args, 1)
	beatsCmd := flag.NewFlagSet("beats", flag.ExitOnError)
	rangeFraction := beatsCmd.Float64("range", 0, "Analyze the first (<=0.5) or last (>0.5) fraction of the track; 0 = whole track")
	beatsCmd.Parse(flagArgs)

	if len(pos) < 1 {
		fmt.Println("Usage: discgenius beats <audio_file> [--range <fraction>]")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	track, err := svc.LoadTrack(ctx, pos[0])
	if err != nil {
		fail("Failed to load track", err)
	}

	fmt.Println("🥁 Tracking beats...")
	grid, err := svc.ExtractBeats(track, *rangeFraction)
	if err != nil {
		fail("Failed to extract beats", err)
	}

	fmt.Printf("\n✅ Found %d beats at %.2f BPM\n", len(grid.Beats), grid.BPM)
	fmt.Printf("   First: %.3fs\n", grid.Beats[0])
	fmt.Printf("   Last:  %.3fs\n", grid.Beats[len(grid.Beats)-1])
}

func handleAlign(args []string) {
	pos, flagArgs := splitArgs(args, 1)
	alignCmd := flag.NewFlagSet("align", flag.ExitOnError)
	bpm := alignCmd.Float64("bpm", 0, "Target tempo (required)")
	out := alignCmd.String("out", "", "Also write the aligned track to this WAV file")
	alignCmd.Parse(flagArgs)

	if len(pos) < 1 || *bpm <= 0 {
		fmt.Println("Usage: discgenius align <audio_file> --bpm <tempo> [--out <file.wav>]")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	track, err := svc.LoadTrack(ctx, pos[0])
	if err != nil {
		fail("Failed to load track", err)
	}

	fmt.Printf("⏱️  Aligning %s to %s BPM...\n", track.Name, models.FormatBPM(*bpm))
	aligned, err := svc.AlignTempo(track, *bpm)
	if err != nil {
		fail("Failed to align tempo", err)
	}

	if *out != "" {
		if err := audio.WriteWAV(*out, aligned); err != nil {
			fail("Failed to write aligned track", err)
		}
	}

	fmt.Printf("\n✅ Aligned %s\n", aligned.Name)
	fmt.Printf("   Duration: %.2fs -> %.2fs\n", track.Duration(), aligned.Duration())
	if *out != "" {
		fmt.Printf("   Written:  %s\n", *out)
	}
}

func handleTransition(args []string) {
	pos, flagArgs := splitArgs(args, 2)
	transitionCmd := flag.NewFlagSet("transition", flag.ExitOnError)
	tf := addTransitionFlags(transitionCmd)
	plotDir := transitionCmd.String("plot", "", "Write score plots to this directory")
	asJSON := transitionCmd.Bool("json", false, "Print the transition points as JSON")
	transitionCmd.Parse(flagArgs)

	if len(pos) < 2 {
		fmt.Println("Usage: discgenius transition <track_a> <track_b> [--length 32] [--midpoint 16] [--bpm 0] [--points a,c,d,e]")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	a, b := loadPair(ctx, svc, pos[0], pos[1])
	req, err := tf.request(a, b)
	if err != nil {
		fail("Invalid arguments", err)
	}

	fmt.Println("🔍 Searching for the transition...")
	res, err := svc.FindTransition(ctx, req)
	if err != nil {
		fail("Failed to find transition", err)
	}

	if *asJSON {
		out, err := json.MarshalIndent(res.Points, "", "  ")
		if err != nil {
			fail("Failed to encode points", err)
		}
		fmt.Println(string(out))
	} else {
		printTransition(res)
	}

	if *plotDir != "" && res.ScoresA != nil {
		if err := writeScorePlots(*plotDir, res); err != nil {
			fail("Failed to plot scores", err)
		}
		fmt.Printf("📈 Score plots written to %s\n", *plotDir)
	}
}

func handleMix(args []string) {
	pos, flagArgs := splitArgs(args, 2)
	mixCmd := flag.NewFlagSet("mix", flag.ExitOnError)
	tf := addTransitionFlags(mixCmd)
	scenario := mixCmd.String("scenario", "EQ_1.0", "Mixing scenario (see 'scenarios')")
	outDir := mixCmd.String("out", ".", "Output directory")
	name := mixCmd.String("name", "", "Output file name without extension (default: generated)")
	mp3 := mixCmd.Bool("mp3", false, "Also encode the mix as MP3 with ffmpeg")
	mixCmd.Parse(flagArgs)

	if len(pos) < 2 {
		fmt.Println("Usage: discgenius mix <track_a> <track_b> [--scenario EQ_1.0] [--out <dir>] [--mp3]")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	a, b := loadPair(ctx, svc, pos[0], pos[1])
	req, err := tf.request(a, b)
	if err != nil {
		fail("Invalid arguments", err)
	}

	fmt.Printf("🎛️  Mixing with %s...\n", *scenario)
	res, err := svc.Mix(ctx, discgenius.MixRequest{
		TransitionRequest: req,
		Scenario:          *scenario,
		OutputDir:         *outDir,
		Name:              *name,
		MP3:               *mp3,
	})
	if err != nil {
		fail("Failed to mix", err)
	}

	printTransition(res.Transition)
	fmt.Printf("\n✅ Mix written!\n")
	fmt.Printf("   Path:     %s\n", res.Path)
	fmt.Printf("   Scenario: %s\n", res.Scenario)
	fmt.Printf("   Duration: %d:%02d\n", int(res.Duration)/60, int(res.Duration)%60)
}

func handlePlot(args []string) {
	pos, flagArgs := splitArgs(args, 1)
	plotCmd := flag.NewFlagSet("plot", flag.ExitOnError)
	out := plotCmd.String("out", "", "Output PNG (default: <track>.png)")
	plotCmd.Parse(flagArgs)

	if len(pos) < 1 {
		fmt.Println("Usage: discgenius plot <audio_file> [--out <file.png>]")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	track, err := svc.LoadTrack(ctx, pos[0])
	if err != nil {
		fail("Failed to load track", err)
	}

	path := *out
	if path == "" {
		path = track.Name + ".png"
	}
	if err := plot.Spectrogram(path, track.Mono, track.SampleRate); err != nil {
		fail("Failed to render spectrogram", err)
	}
	fmt.Printf("\n✅ Spectrogram written to %s\n", path)
}

func handleSynth(args []string) {
	pos, flagArgs := splitArgs(args, 1)
	synthCmd := flag.NewFlagSet("synth", flag.ExitOnError)
	o := synth.DefaultOptions()
	bpm := synthCmd.Float64("bpm", o.BPM, "Tempo")
	duration := synthCmd.Float64("duration", o.Duration, "Length in seconds")
	stable := synthCmd.Float64("stable", -1, "Position of the held chord as a fraction of the duration (negative = none)")
	seed := synthCmd.Int64("seed", o.Seed, "Random seed for the lead line")
	synthCmd.Parse(flagArgs)

	if len(pos) < 1 {
		fmt.Println("Usage: discgenius synth <out_<bpm>.wav> [--bpm 120] [--duration 240] [--stable 0.75] [--seed 1]")
		os.Exit(1)
	}

	o.BPM = *bpm
	o.Duration = *duration
	if sampleRate > 0 {
		o.SampleRate = sampleRate
	}
	o.Seed = *seed
	if *stable >= 0 {
		o.StableBeat = o.BeatAt(*stable)
	}

	name := strings.TrimSuffix(filepath.Base(pos[0]), filepath.Ext(pos[0]))
	track, err := synth.Track(name, o)
	if err != nil {
		fail("Failed to render track", err)
	}
	if err := audio.WritePCM16(pos[0], track); err != nil {
		fail("Failed to write track", err)
	}

	fmt.Printf("\n✅ Synthetic track written to %s\n", pos[0])
	if o.StableBeat >= 0 {
		fmt.Printf("   Stable passage at %.2fs (beat %d)\n", o.BeatTime(o.StableBeat), o.StableBeat)
	}
}

func handleScenarios() {
	fmt.Println("🎛️  Mixing scenarios:")
	for _, name := range mix.Names() {
		fmt.Printf("   %s\n", name)
	}
}

func printTransition(res *discgenius.TransitionResult) {
	p := res.Points
	fmt.Printf("\n✅ Transition at %s BPM (%d beats, midpoint %d)\n", models.FormatBPM(res.BPM), res.TransitionLength, res.Midpoint)
	fmt.Printf("   Track A (%s):\n", res.TrackA.Name)
	fmt.Printf("      C: %8.3fs   D: %8.3fs   E: %8.3fs\n", p.C, p.D, p.E)
	fmt.Printf("   Track B (%s):\n", res.TrackB.Name)
	fmt.Printf("      A: %8.3fs   B: %8.3fs   X: %8.3fs\n", p.A, p.B, p.X)
}

func writeScorePlots(dir string, res *discgenius.TransitionResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, p := range []struct {
		track  *models.Track
		label  string
		scores []float64
	}{
		{res.TrackA, "outgoing", res.ScoresA},
		{res.TrackB, "incoming", res.ScoresB},
	} {
		best, err := transition.SelectBest(p.scores)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, p.track.Name+"_"+p.label+".png")
		title := fmt.Sprintf("%s (%s)", p.track.Name, p.label)
		if err := plot.Scores(path, title, p.scores, score.DefaultSentinel, best); err != nil {
			return err
		}
	}
	return nil
}

func printUsage() {
	fmt.Println("DiscGenius - DJ Transition Finder CLI")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --analysis <dir>   Beat grid cache (env: DISCGENIUS_ANALYSIS_DIR, default: analysis)")
	fmt.Println("  --aligned <dir>    Aligned audio cache (env: DISCGENIUS_ALIGNED_DIR, default: aligned)")
	fmt.Println("  --temp <dir>       Temporary directory for audio conversion (env: DISCGENIUS_TEMP_DIR, default: /tmp)")
	fmt.Println("  --db <path>        SQLite beat grid cache (env: DISCGENIUS_DB_PATH)")
	fmt.Println("  --rate <hz>        Audio sample rate, 0 keeps each file's rate (default: 22050)")
	fmt.Println("  --mix-area <f>     Fraction of candidates eligible for selection (default: 0.1)")
	fmt.Println("\nUsage:")
	fmt.Println("  discgenius [global-options] beats <audio_file> [--range <fraction>]")
	fmt.Println("  discgenius [global-options] align <audio_file> --bpm <tempo> [--out <file.wav>]")
	fmt.Println("  discgenius [global-options] transition <track_a> <track_b> [transition options] [--plot <dir>] [--json]")
	fmt.Println("  discgenius [global-options] mix <track_a> <track_b> [transition options] [--scenario <name>] [--out <dir>] [--mp3]")
	fmt.Println("  discgenius [global-options] plot <audio_file> [--out <file.png>]")
	fmt.Println("  discgenius [global-options] synth <out_<bpm>.wav> [--bpm 120] [--duration 240] [--stable 0.75]")
	fmt.Println("  discgenius scenarios")
	fmt.Println("\nTransition Options:")
	fmt.Println("  --length <beats>   Transition length (default: 32)")
	fmt.Println("  --midpoint <beats> Midpoint offset (default: 16)")
	fmt.Println("  --bpm <tempo>      Mix tempo, 0 = tempo of track A (default: 0)")
	fmt.Println("  --entry <f>        Head fraction of track B to analyze (default: 0.3)")
	fmt.Println("  --exit <f>         Tail fraction of track A to analyze (default: 0.7)")
	fmt.Println("  --points a,c,d,e   Skip the search and use these points")
	fmt.Println("\nExamples:")
	fmt.Println("  # Find a 32-beat transition between two tracks")
	fmt.Println("  discgenius transition outro_128.mp3 intro_126.mp3")
	fmt.Println()
	fmt.Println("  # Mix at 127 BPM with the bass swap scenario")
	fmt.Println("  discgenius mix outro_128.mp3 intro_126.mp3 --bpm 127 --scenario EQ_2.0 --mp3")
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"

	"github.com/vectra-dev/vectra"
	"github.com/vectra-dev/vectra/utils"
)

const helpBanner = `
┬  ┬┌─┐┌─┐┌┬┐┬─┐┌─┐
└┐┌┘├┤ │   │ ├┬┘├─┤
 └┘ └─┘└─┘ ┴ ┴└─┴ ┴

Raster image to layered vector converter.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// Version indicates the current build version, injected via ldflags.
var Version = "devel"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, utils.DecorateText(err.Error(), utils.ErrorMessage))
		os.Exit(1)
	}
}

func run() error {
	var verbose bool

	root := &cobra.Command{
		Use:          "vectra",
		Short:        "vectra converts raster images into layered SVG documents",
		Long:         fmt.Sprintf(helpBanner, Version),
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
				ReportTimestamp: true,
				TimeFormat:      "15:04:05.00",
				Level:           level,
			})
			cmd.SetContext(withLogger(cmd.Context(), logger))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newConvertCmd())
	root.AddCommand(newLayersCmd())
	root.AddCommand(newSetVisibilityCmd())
	root.AddCommand(newSetColorCmd())

	return root.ExecuteContext(context.Background())
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *charmlog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

func loggerFromContext(ctx context.Context) *charmlog.Logger {
	if l, ok := ctx.Value(loggerKey).(*charmlog.Logger); ok {
		return l
	}
	return charmlog.Default()
}

func newConvertCmd() *cobra.Command {
	cfg := defaultConfig()
	var (
		source      string
		destination string
		configPath  string
		faceDetect  bool
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a raster image into a layered SVG document",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			if configPath != "" {
				fileCfg := cfg
				if err := loadConfig(configPath, &fileCfg); err != nil {
					return err
				}
				// Flags set on the command line win over the config file.
				applyUnchanged(cmd, &cfg, fileCfg)
			}

			proc, err := buildProcessor(cfg, faceDetect, logger)
			if err != nil {
				return err
			}

			in, inClose, err := openInput(source)
			if err != nil {
				return err
			}
			defer inClose()

			out, outClose, err := openOutput(destination)
			if err != nil {
				return err
			}
			defer outClose()

			var spinner *utils.Spinner
			if term.IsTerminal(int(os.Stderr.Fd())) && destination != pipeName {
				spinner = utils.NewSpinner(fmt.Sprintf("%s %s",
					utils.DecorateText("⚡ VECTRA", utils.StatusMessage),
					utils.DecorateText("is tracing the image...", utils.DefaultMessage)),
					time.Millisecond*200, true)
				proc.OnProgress = func(stage string, percent int) {
					spinner.SetMessage(fmt.Sprintf("%s %s",
						utils.DecorateText("⚡ VECTRA", utils.StatusMessage),
						utils.DecorateText(fmt.Sprintf("%s %d%%", stage, percent), utils.DefaultMessage)))
				}
				spinner.Start()
				defer spinner.Stop()
			} else {
				proc.OnProgress = func(stage string, percent int) {
					logger.Debug("progress", "stage", stage, "percent", percent)
				}
			}

			start := time.Now()
			if err := proc.Process(in, out); err != nil {
				return err
			}

			logger.Info("converted image",
				"in", source, "out", destination,
				"duration", utils.FormatTime(time.Since(start)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "in", "i", pipeName, "source image (or - for stdin)")
	cmd.Flags().StringVarP(&destination, "out", "o", pipeName, "destination document (or - for stdout)")
	cmd.Flags().StringVar(&configPath, "config", "", "TOML file with conversion defaults")
	cmd.Flags().StringVar(&cfg.Mode, "mode", cfg.Mode, "color mode: color or mono")
	cmd.Flags().IntVar(&cfg.MaxColors, "colors", cfg.MaxColors, "maximum palette size [2-256]")
	cmd.Flags().Float64Var(&cfg.Tolerance, "tolerance", cfg.Tolerance, "path simplification tolerance in pixels")
	cmd.Flags().IntVar(&cfg.Blur, "blur", cfg.Blur, "pre-quantization blur radius")
	cmd.Flags().Float64Var(&cfg.Stroke, "stroke", cfg.Stroke, "stroke width added to every path")
	cmd.Flags().BoolVar(&cfg.Layers, "layers", cfg.Layers, "tag output groups as editor layers")
	cmd.Flags().StringVar(&cfg.Naming, "naming", cfg.Naming, "layer naming: color or index")
	cmd.Flags().IntVar(&cfg.MaxSize, "max-size", cfg.MaxSize, "downscale images larger than this")
	cmd.Flags().StringVar(&cfg.Dialect, "dialect", cfg.Dialect, "output dialect: plain, illustrator or photopea")
	cmd.Flags().BoolVar(&cfg.Refine, "refine", cfg.Refine, "refine the palette with k-means")
	cmd.Flags().IntVar(&cfg.MonoThreshold, "mono-threshold", cfg.MonoThreshold, "luma cutoff for mono mode")
	cmd.Flags().BoolVar(&cfg.MonoInvert, "mono-invert", cfg.MonoInvert, "trace pixels lighter than the cutoff instead")
	cmd.Flags().BoolVar(&faceDetect, "face", false, "preserve detail in detected face regions")
	cmd.Flags().StringVar(&cfg.Classifier, "cc", cfg.Classifier, "cascade classifier file for face detection")
	cmd.Flags().Float64Var(&cfg.FaceAngle, "angle", cfg.FaceAngle, "plane rotated faces angle")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for palette refinement")

	return cmd
}

// applyUnchanged copies file-config values into cfg for every flag the user
// did not set explicitly.
func applyUnchanged(cmd *cobra.Command, cfg *config, fileCfg config) {
	if !cmd.Flags().Changed("mode") {
		cfg.Mode = fileCfg.Mode
	}
	if !cmd.Flags().Changed("colors") {
		cfg.MaxColors = fileCfg.MaxColors
	}
	if !cmd.Flags().Changed("tolerance") {
		cfg.Tolerance = fileCfg.Tolerance
	}
	if !cmd.Flags().Changed("blur") {
		cfg.Blur = fileCfg.Blur
	}
	if !cmd.Flags().Changed("stroke") {
		cfg.Stroke = fileCfg.Stroke
	}
	if !cmd.Flags().Changed("layers") {
		cfg.Layers = fileCfg.Layers
	}
	if !cmd.Flags().Changed("naming") {
		cfg.Naming = fileCfg.Naming
	}
	if !cmd.Flags().Changed("max-size") {
		cfg.MaxSize = fileCfg.MaxSize
	}
	if !cmd.Flags().Changed("dialect") {
		cfg.Dialect = fileCfg.Dialect
	}
	if !cmd.Flags().Changed("refine") {
		cfg.Refine = fileCfg.Refine
	}
	if !cmd.Flags().Changed("mono-threshold") {
		cfg.MonoThreshold = fileCfg.MonoThreshold
	}
	if !cmd.Flags().Changed("mono-invert") {
		cfg.MonoInvert = fileCfg.MonoInvert
	}
	if !cmd.Flags().Changed("cc") {
		cfg.Classifier = fileCfg.Classifier
	}
	if !cmd.Flags().Changed("angle") {
		cfg.FaceAngle = fileCfg.FaceAngle
	}
	if !cmd.Flags().Changed("seed") {
		cfg.Seed = fileCfg.Seed
	}
}

func buildProcessor(cfg config, faceDetect bool, logger *charmlog.Logger) (*vectra.Processor, error) {
	dialect, err := vectra.ParseDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	mode := vectra.ColorModeColor
	switch cfg.Mode {
	case "", "color":
	case "mono", "monochrome":
		mode = vectra.ColorModeMonochrome
	default:
		return nil, fmt.Errorf("unknown color mode %q", cfg.Mode)
	}

	naming := vectra.NamingColorName
	switch cfg.Naming {
	case "", "color":
	case "index":
		naming = vectra.NamingIndex
	default:
		return nil, fmt.Errorf("unknown naming scheme %q", cfg.Naming)
	}

	if faceDetect && cfg.Classifier == "" {
		return nil, fmt.Errorf("please specify a face classifier with --cc when using --face")
	}

	return &vectra.Processor{
		ColorMode:         mode,
		MaxColors:         cfg.MaxColors,
		SimplifyTolerance: cfg.Tolerance,
		BlurRadius:        cfg.Blur,
		StrokeWidth:       cfg.Stroke,
		EnableLayers:      cfg.Layers,
		LayerNaming:       naming,
		MaxImageSize:      cfg.MaxSize,
		Dialect:           dialect,
		Refine:            cfg.Refine,
		MonoThreshold:     cfg.MonoThreshold,
		MonoInvert:        cfg.MonoInvert,
		FaceDetect:        faceDetect,
		FaceAngle:         cfg.FaceAngle,
		Classifier:        cfg.Classifier,
		Seed:              cfg.Seed,
		Logger:            logger,
	}, nil
}

func newLayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layers <document>",
		Short: "Print the layer manifest of a serialized document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			layers, err := vectra.Parse(string(text))
			if err != nil {
				return err
			}
			for _, l := range layers {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\tvisible=%t\tpaths=%d\n",
					l.ID, l.Name, l.ColorHex, l.Visible, len(l.Paths))
			}
			return nil
		},
	}
}

func newSetVisibilityCmd() *cobra.Command {
	var destination string

	cmd := &cobra.Command{
		Use:   "set-visibility <document> <layer-id> <true|false>",
		Short: "Toggle a layer's visibility in a serialized document",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			visible, err := strconv.ParseBool(args[2])
			if err != nil {
				return fmt.Errorf("visibility must be true or false: %w", err)
			}
			return mutateDocument(args[0], destination, func(text string) (string, error) {
				return vectra.SetVisibility(text, args[1], visible)
			})
		},
	}
	cmd.Flags().StringVarP(&destination, "out", "o", pipeName, "destination (or - for stdout)")
	return cmd
}

func newSetColorCmd() *cobra.Command {
	var destination string

	cmd := &cobra.Command{
		Use:   "set-color <document> <layer-id> <#rrggbb>",
		Short: "Rewrite a layer's fill color in a serialized document",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateDocument(args[0], destination, func(text string) (string, error) {
				return vectra.SetColor(text, args[1], args[2])
			})
		},
	}
	cmd.Flags().StringVarP(&destination, "out", "o", pipeName, "destination (or - for stdout)")
	return cmd
}

func mutateDocument(path, destination string, fn func(string) (string, error)) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	mutated, err := fn(string(text))
	if err != nil {
		return err
	}

	out, outClose, err := openOutput(destination)
	if err != nil {
		return err
	}
	defer outClose()
	_, err = io.WriteString(out, mutated)
	return err
}

func openInput(source string) (io.Reader, func(), error) {
	if source == pipeName {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load the source image: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func openOutput(destination string) (io.Writer, func(), error) {
	if destination == pipeName {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(destination)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create the output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

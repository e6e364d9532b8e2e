// Command stardetect runs star-convex nucleus detection on an image and
// writes the detected objects as GeoJSON-bearing JSON, optionally with a
// rendered overlay.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"stardetect/internal/detect"
	imgsrc "stardetect/internal/image"
	"stardetect/internal/measure"
	"stardetect/internal/regions"
	"stardetect/internal/render"
	"stardetect/internal/version"
)

func main() {
	imagePath := flag.String("image", "", "Path to input image (TIFF, PNG, or JPEG)")
	modelPath := flag.String("model", "", "Path to the StarDist model (OpenCV-readable, e.g. frozen TensorFlow .pb or ONNX)")
	threshold := flag.Float64("threshold", 0.5, "Probability threshold in [0, 1)")
	simplify := flag.Float64("simplify", 1.4, "Contour simplification distance in pixels (<= 0 disables)")
	expansion := flag.Float64("expansion", 0, "Cell expansion distance in pixels (0 disables)")
	tileSize := flag.Int("tile", 1024, "Tile size in pixels")
	padding := flag.Int("pad", 32, "Tile padding in pixels")
	workers := flag.Int("workers", 0, "Maximum parallel tiles (0 = unbounded)")
	channels := flag.Int("channels", 1, "Model input channels: 1 (grayscale) or 3 (RGB)")
	downsample := flag.Float64("downsample", 1, "Detection downsample factor")
	normalize := flag.String("normalize", "1,99", "Percentile normalization as low,high (empty disables)")
	classes := flag.String("classes", "", "Classification labels as idx=label,idx=label")
	measureShape := flag.Bool("shape", false, "Attach shape measurements")
	measureIntensity := flag.Bool("intensity", false, "Attach intensity measurements")
	outPath := flag.String("out", "", "Write detections as JSON to this file (default stdout)")
	overlayPath := flag.String("overlay", "", "Write a PNG overlay of the detections")
	verbose := flag.Bool("v", false, "Verbose logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("stardetect %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}
	if *imagePath == "" || *modelPath == "" {
		fmt.Println("Usage: stardetect -image <path> -model <path> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	src, err := imgsrc.Load(*imagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load image")
	}
	b := src.Bounds()
	logger.Info().Int("width", b.Dx()).Int("height", b.Dy()).Str("path", *imagePath).Msg("loaded image")

	builder := detect.NewBuilder(*modelPath).
		Threshold(*threshold).
		Simplify(*simplify).
		CellExpansion(*expansion).
		TileSize(*tileSize, *tileSize).
		Padding(*padding).
		Workers(*workers).
		Channels(*channels).
		Downsample(*downsample).
		Logger(logger)

	if *normalize != "" {
		low, high, err := parseRange(*normalize)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid -normalize value")
		}
		builder.NormalizePercentiles(low, high)
	}
	if *classes != "" {
		m, err := parseClasses(*classes)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid -classes value")
		}
		builder.Classifications(m)
	}
	if *measureShape {
		builder.MeasureShape()
	}
	if *measureIntensity {
		builder.MeasureIntensityStats(measure.DefaultStats()...)
	}
	builder.IncludeProbability(true)

	detector, err := builder.Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build detector")
	}
	defer detector.Close()

	objects, err := detector.DetectAll(context.Background(), src)
	if err != nil {
		logger.Fatal().Err(err).Msg("detection failed")
	}
	logger.Info().Int("objects", len(objects)).Msg("detection finished")

	if err := writeJSON(*outPath, objects); err != nil {
		logger.Fatal().Err(err).Msg("failed to write detections")
	}

	if *overlayPath != "" {
		img, err := src.ReadRegion(regionOf(src))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to read image for overlay")
		}
		overlay := render.Overlay(img, objects, render.DefaultOptions())
		if err := imaging.Save(overlay, *overlayPath); err != nil {
			logger.Fatal().Err(err).Msg("failed to write overlay")
		}
		logger.Info().Str("path", *overlayPath).Msg("wrote overlay")
	}
}

func regionOf(src imgsrc.Source) regions.RegionRequest {
	b := src.Bounds()
	return regions.NewRequest(b.Min.X, b.Min.Y, b.Dx(), b.Dy(), 1)
}

func parseRange(s string) (low, high float64, err error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want low,high, got %q", s)
	}
	if low, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, err
	}
	if high, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, err
	}
	return low, high, nil
}

func parseClasses(s string) (map[int]string, error) {
	out := make(map[int]string)
	for _, pair := range strings.Split(s, ",") {
		idx, label, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("want idx=label, got %q", pair)
		}
		i, err := strconv.Atoi(idx)
		if err != nil {
			return nil, err
		}
		out[i] = label
	}
	return out, nil
}

func writeJSON(path string, objects []detect.Object) error {
	w := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(objects)
}

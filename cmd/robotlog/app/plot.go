package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli"

	"github.com/team4028/robot-telemetry/internal/plot"
	"github.com/team4028/robot-telemetry/internal/storage"
	"github.com/team4028/robot-telemetry/internal/telemetry"
	"github.com/team4028/robot-telemetry/internal/tsvlog"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"
)

type ImageFormat string

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func (r *runner) plot(c *cli.Context) (err error) {
	format := ImageFormat(strings.ToLower(c.String("format")))
	if _, ok := validImageFormats[format]; !ok {
		return fmt.Errorf("invalid image format: %s", format)
	}

	columns := c.StringSlice("column")
	if len(columns) == 0 {
		return errors.New("at least one column is required")
	}

	sessionID := c.Int64("session")
	logPath := c.Args().First()
	output := c.String("output")

	var src io.ReadCloser
	var title string
	switch {
	case sessionID > 0:
		var store *storage.SqliteStore
		if store, err = r.openStore(); err != nil {
			return err
		}
		defer closeWithError(store, &err)

		if src, err = sessionLog(r.ctx, store, sessionID); err != nil {
			return err
		}
		title = fmt.Sprintf("Session %d", sessionID)
		if output == "" {
			output = fmt.Sprintf("session_%d", sessionID)
		}

	case logPath != "":
		if src, err = os.Open(logPath); err != nil {
			return fmt.Errorf("opening log: %w", err)
		}
		title = filepath.Base(logPath)
		if output == "" {
			output = strings.TrimSuffix(logPath, filepath.Ext(logPath))
		}

	default:
		return errors.New("either a log file or a session is required")
	}
	defer closeWithError(src, &err)

	reader, err := tsvlog.NewReader(src)
	if err != nil {
		return fmt.Errorf("reading log: %w", err)
	}

	chart, err := plot.FromLog(reader, plot.DefaultTimeColumn, columns...)
	if err != nil {
		return fmt.Errorf("reading columns: %w", err)
	}
	chart.Title = title

	renderer := plot.NewRenderer(plot.Config{
		Width:  c.Int("width"),
		Height: c.Int("height"),
	})

	img, err := renderer.Render(chart)
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}

	output = fmt.Sprintf("%s.%s", output, format)
	r.logger.Info("rendering chart",
		slog.Group("image",
			slog.String("destination", output),
			slog.String("format", string(format)),
			slog.Int("width", img.Bounds().Dx()),
			slog.Int("height", img.Bounds().Dy()),
		),
		slog.Int("samples", chart.Samples()),
		slog.Any("columns", columns))

	return writeImage(output, format, img)
}

func writeImage(path string, format ImageFormat, img image.Image) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating image: %w", err)
	}
	defer closeWithError(out, &err)

	switch format {
	case ImagePNG:
		err = png.Encode(out, img)
	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	if err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}
	return nil
}

// sessionLog streams a stored session in the TSV log format
func sessionLog(ctx context.Context, store storage.Store, sessionID int64) (io.ReadCloser, error) {
	sess, err := store.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	iter, err := store.ReadFrames(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	go func() {
		defer iter.Close()

		_, err := io.WriteString(pw, sess.Header+telemetry.LineEnd)
		for err == nil && iter.Next() {
			_, err = io.WriteString(pw, iter.Current().Data+telemetry.LineEnd)
		}
		if err == nil {
			err = iter.Error()
		}
		pw.CloseWithError(err)
	}()

	return pr, nil
}

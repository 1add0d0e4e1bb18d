package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli"

	"github.com/team4028/robot-telemetry/internal/robotmap"
)

// runner holds what the commands share: configuration, robot map and logger.
// It is populated by the app's Before hook.
type runner struct {
	ctx    context.Context
	stdout io.Writer
	stderr io.Writer

	level     slog.LevelVar
	logger    *slog.Logger
	logCloser io.Closer

	config   *Config
	robotMap *robotmap.Map
}

// New creates the robotlog command line application. Commands stop when ctx is
// cancelled.
func New(ctx context.Context, stdout, stderr io.Writer) *cli.App {
	r := runner{
		ctx:    ctx,
		stdout: stdout,
		stderr: stderr,
		logger: slog.New(slog.NewTextHandler(stderr, nil)),
	}

	app := cli.NewApp()
	app.Name = "robotlog"
	app.Usage = "inspect the robot map and record, store and plot telemetry logs"
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "Path to the configuration file",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "Override the configured log level [debug, info, warn, error]",
		},
	}
	app.Before = r.before
	app.After = r.after

	app.Commands = []cli.Command{
		{
			Name:  "constants",
			Usage: "print the robot map and its derived conversion factors",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "yaml",
					Usage: "Print the robot map as YAML, suitable as a robot map file",
				},
			},
			Action: r.constants,
		},
		{
			Name:  "header",
			Usage: "print the telemetry log header line",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "columns",
					Usage: "Print one column name per line",
				},
			},
			Action: r.header,
		},
		{
			Name:  "simulate",
			Usage: "run a synthetic drive and record its telemetry",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "cycles",
					Value: defaultCycles,
					Usage: "Number of control cycles to run",
				},
				cli.DurationFlag{
					Name:  "interval",
					Value: defaultInterval,
					Usage: "Control cycle period",
				},
				cli.StringFlag{
					Name:  "output, o",
					Usage: "Telemetry log directory, overrides the configuration",
				},
				cli.BoolFlag{
					Name:  "store",
					Usage: "Also store frames in the database",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: 4028,
					Usage: "Seed of the simulated sensor noise",
				},
			},
			Action: r.simulate,
		},
		{
			Name:      "import",
			Usage:     "store a telemetry log file in the database",
			ArgsUsage: "<log.tsv>",
			Action:    r.importLog,
		},
		{
			Name:   "sessions",
			Usage:  "list sessions stored in the database",
			Action: r.sessions,
		},
		{
			Name:      "plot",
			Usage:     "chart columns of a telemetry log or stored session",
			ArgsUsage: "[log.tsv]",
			Flags: []cli.Flag{
				cli.Int64Flag{
					Name:  "session, s",
					Usage: "Stored session ID, used instead of a log file",
				},
				cli.StringSliceFlag{
					Name:  "column",
					Usage: "Column to plot, repeat for more series",
				},
				cli.StringFlag{
					Name:  "output, o",
					Usage: "Path to the output file, without extension",
				},
				cli.StringFlag{
					Name:  "format, f",
					Value: string(ImagePNG),
					Usage: "Output image format. [png, jpeg]",
				},
				cli.IntFlag{
					Name:  "width",
					Usage: "Plot area width in pixels",
				},
				cli.IntFlag{
					Name:  "height",
					Usage: "Plot area height in pixels",
				},
			},
			Action: r.plot,
		},
	}

	return app
}

func (r *runner) before(c *cli.Context) error {
	config := NewConfig()
	if path := c.String("config"); path != "" {
		var err error
		if config, err = LoadConfig(path); err != nil {
			return fmt.Errorf("loading configuration file '%s': %w", path, err)
		}
	}
	if level := c.String("log-level"); level != "" {
		config.Settings.LogLevel = level
	}

	level, err := config.Settings.Level()
	if err != nil {
		return err
	}
	r.level.Set(level)
	r.logger, r.logCloser = newLogger(r.stderr, &r.level, config.Settings)

	m, err := config.LoadRobotMap()
	if err != nil {
		return fmt.Errorf("loading robot map: %w", err)
	}

	r.config = config
	r.robotMap = m

	r.logger.Debug("configuration loaded",
		slog.String("robot", m.Robot()),
		slog.String("robotMap", config.RobotMap))
	return nil
}

func (r *runner) after(*cli.Context) error {
	if r.logCloser == nil {
		return nil
	}
	return r.logCloser.Close()
}

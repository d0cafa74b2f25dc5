// Command trajectory tracks a moving object through a video or a directory
// of frames and estimates its projectile trajectory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/banshee-data/trajectory.report/internal/calibration"
	"github.com/banshee-data/trajectory.report/internal/config"
	"github.com/banshee-data/trajectory.report/internal/db"
	"github.com/banshee-data/trajectory.report/internal/fsutil"
	"github.com/banshee-data/trajectory.report/internal/kinematics"
	"github.com/banshee-data/trajectory.report/internal/monitoring"
	"github.com/banshee-data/trajectory.report/internal/motion"
	"github.com/banshee-data/trajectory.report/internal/pipeline"
	"github.com/banshee-data/trajectory.report/internal/report"
	"github.com/banshee-data/trajectory.report/internal/timeutil"
	"github.com/banshee-data/trajectory.report/internal/trajectory"
	"github.com/banshee-data/trajectory.report/internal/units"
	"github.com/banshee-data/trajectory.report/internal/version"
	"github.com/banshee-data/trajectory.report/internal/video"
)

var (
	videoPath   = flag.String("video", "", "Video file to track (requires -tags=opencv)")
	framesDir   = flag.String("frames", "", "Directory of PNG/JPEG frames to track")
	fps         = flag.Float64("fps", 0, "Frame rate override; 0 uses the video's rate or the config frame_rate")
	configFile  = flag.String("config", "", "Path to tracker config JSON (defaults apply when empty)")
	scale       = flag.Float64("scale", 0, "Fixed scale in meters per pixel; skips point calibration")
	refPoints   = flag.String("ref-points", "", "Calibration points x1,y1,x2,y2 in the first frame")
	refMeters   = flag.Float64("ref-meters", 0, "Distance between the calibration points in meters (default from config)")
	plotPath    = flag.String("plot", "", "Write a trajectory plot (png, svg or pdf) to this path")
	chartPath   = flag.String("chart", "", "Write an interactive HTML trajectory chart to this path")
	dbPath      = flag.String("db", "", "SQLite database to record the session in")
	listen      = flag.String("listen", "", "Serve live status on this address (e.g. :8080)")
	realtime    = flag.Bool("realtime", false, "Pace processing at the source frame rate")
	reportUnits = flag.String("units", "", "Speed units for reports: "+units.GetValidUnitsString())
	diag        = flag.Bool("diag", false, "Enable the diagnostic log stream")
	trace       = flag.Bool("trace", false, "Enable the per-frame trace log stream")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("trajectory", version.String())
		return
	}

	setupLogging(os.Stderr, *diag, *trace)

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *reportUnits != "" {
		if !units.IsValid(*reportUnits) {
			log.Fatalf("invalid -units %q: must be one of %s", *reportUnits, units.GetValidUnitsString())
		}
		cfg.ReportUnits = reportUnits
	}

	provider, err := calibrationProvider(cfg, *scale, *refPoints, *refMeters)
	if err != nil {
		log.Fatalf("calibration: %v", err)
	}

	src, sourceName, err := openSource(*videoPath, *framesDir, *fps, cfg.GetFrameRate())
	if err != nil {
		log.Fatalf("failed to open frame source: %v", err)
	}

	detector, err := motion.New(cfg.GetDetector(), detectorParams(cfg))
	if err != nil {
		src.Close()
		log.Fatalf("failed to create detector: %v", err)
	}
	if c, ok := detector.(io.Closer); ok {
		defer c.Close()
	}

	var store *db.DB
	if *dbPath != "" {
		store, err = db.NewDB(*dbPath)
		if err != nil {
			src.Close()
			log.Fatalf("failed to open database: %v", err)
		}
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	latest := report.NewLatest()
	sinks, err := buildSinks(fsutil.OSFileSystem{}, cfg.GetReportUnits(), *plotPath, *chartPath, latest)
	if err != nil {
		src.Close()
		log.Fatalf("failed to set up reporting: %v", err)
	}

	var wg sync.WaitGroup
	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	if *listen != "" {
		server, err := report.NewServer(report.ServerConfig{
			Address:   *listen,
			Latest:    latest,
			DB:        store,
			BackupDir: ".",
			Units:     cfg.GetReportUnits(),
		})
		if err != nil {
			src.Close()
			log.Fatalf("failed to create HTTP server: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Start(serverCtx); err != nil {
				monitoring.Opsf("HTTP server failed: %v", err)
			}
		}()
	}

	sessionCfg := pipeline.Config{
		Detector:     detector,
		Calibration:  provider,
		Sink:         sinks,
		Axis:         kinematics.Axis(cfg.GetTrajectoryAxis()),
		RefitEvery:   cfg.GetRefitEveryFrames(),
		Launch:       launchDefaults(cfg),
		Store:        store,
		SourceName:   sourceName,
		DetectorName: cfg.GetDetector(),
	}
	if *realtime {
		sessionCfg.Clock = timeutil.RealClock{}
	}

	session, err := pipeline.NewSession(sessionCfg)
	if err != nil {
		src.Close()
		log.Fatalf("failed to create session: %v", err)
	}

	res, err := session.Run(ctx, src)
	switch {
	case errors.Is(err, context.Canceled):
		monitoring.Logf("interrupted after %d frames", res.Frames)
	case err != nil:
		stopServer()
		wg.Wait()
		log.Fatalf("tracking failed: %v", err)
	default:
		monitoring.Logf("processed %d frames, %d detections", res.Frames, res.Snapshot.Detections)
	}
	if res.SessionID != "" {
		monitoring.Logf("session %s recorded in %s", res.SessionID, *dbPath)
	}

	if *listen != "" && ctx.Err() == nil {
		monitoring.Logf("session finished; still serving on %s (Ctrl-C to exit)", *listen)
		<-ctx.Done()
	}
	stopServer()
	wg.Wait()
}

// setupLogging routes the ops stream to w and enables the diag and trace
// streams on request.
func setupLogging(w io.Writer, diag, trace bool) {
	var diagW, traceW io.Writer
	if diag {
		diagW = w
	}
	if trace {
		traceW = w
	}
	monitoring.SetLogWriters(w, diagW, traceW)
}

func loadConfig(path string) (*config.TrackerConfig, error) {
	if path == "" {
		return config.EmptyTrackerConfig(), nil
	}
	return config.LoadTrackerConfig(path)
}

// calibrationProvider prefers an explicit scale, then reference points.
func calibrationProvider(cfg *config.TrackerConfig, scale float64, points string, meters float64) (calibration.Provider, error) {
	if scale != 0 {
		return calibration.Fixed(scale), nil
	}
	pts, err := calibration.ParsePoints(points)
	if err != nil {
		return nil, err
	}
	if len(pts) < 2 {
		return nil, fmt.Errorf("%w: provide -scale or -ref-points x1,y1,x2,y2", calibration.ErrCalibrationFailed)
	}
	if meters == 0 {
		meters = cfg.GetReferenceDistanceMeters()
	}
	monitoring.Diagf("calibrating from %v to %v (%.1f px = %.3f m)", pts[0], pts[1], calibration.PixelDistance(pts[0], pts[1]), meters)
	return calibration.TwoPoint{Points: pts, ReferenceMeters: meters}, nil
}

// openSource opens exactly one of videoPath and framesDir. Image sequences
// fall back to the configured frame rate when fps is not set.
func openSource(videoPath, framesDir string, fps, defaultFPS float64) (video.FrameSource, string, error) {
	switch {
	case videoPath != "" && framesDir != "":
		return nil, "", errors.New("use only one of -video and -frames")
	case framesDir != "":
		if fps <= 0 {
			fps = defaultFPS
		}
		src, err := video.OpenImageSequence(fsutil.OSFileSystem{}, framesDir, fps)
		if err != nil {
			return nil, "", err
		}
		return src, framesDir, nil
	case videoPath != "":
		src, err := video.Open(videoPath, fps)
		if err != nil {
			return nil, "", err
		}
		return src, videoPath, nil
	default:
		return nil, "", errors.New("one of -video or -frames is required")
	}
}

func detectorParams(cfg *config.TrackerConfig) motion.Params {
	return motion.Params{
		Threshold:     uint8(cfg.GetMotionThreshold()),
		MinAreaPixels: cfg.GetMinAreaPixels(),
		KernelSize:    cfg.GetKernelSize(),
		KernelDisk:    cfg.GetKernelDisk(),
	}
}

func launchDefaults(cfg *config.TrackerConfig) trajectory.Launch {
	return trajectory.Launch{
		AngleDegrees: cfg.GetLaunchAngleDegrees(),
		Gravity:      cfg.GetGravityMps2(),
		Samples:      cfg.GetTrajectorySamples(),
	}
}

// buildSinks assembles the log sink, the optional file sinks and latest.
func buildSinks(fs fsutil.FileSystem, unit, plotPath, chartPath string, latest *report.Latest) (report.Multi, error) {
	sinks := report.Multi{report.NewLogSink(unit)}
	if plotPath != "" {
		p, err := report.NewPlotSink(fs, plotPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, p)
	}
	if chartPath != "" {
		if !strings.HasSuffix(strings.ToLower(chartPath), ".html") {
			return nil, fmt.Errorf("chart path %q must end in .html", chartPath)
		}
		sinks = append(sinks, report.NewChartSink(fs, chartPath))
	}
	if latest != nil {
		sinks = append(sinks, latest)
	}
	return sinks, nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/trajectory.report/internal/units"
)

// DefaultConfigPath is the path to the canonical tracker defaults file.
const DefaultConfigPath = "config/tracker.defaults.json"

// Detector backends.
const (
	DetectorNative = "native"
	DetectorOpenCV = "opencv"
)

// Trajectory axes. AxisHorizontal measures x as displacement from the first
// detection; AxisPath measures x as cumulative distance travelled.
const (
	AxisHorizontal = "horizontal"
	AxisPath       = "path"
)

// TrackerConfig holds the tunable parameters of a tracking session.
// Every field is optional; the Get* accessors supply defaults.
type TrackerConfig struct {
	// Motion detector
	MotionThreshold *int    `json:"motion_threshold,omitempty"` // grey levels, 0-255
	MinAreaPixels   *int    `json:"min_area_pixels,omitempty"`
	KernelSize      *int    `json:"kernel_size,omitempty"` // odd, >= 1
	KernelDisk      *bool   `json:"kernel_disk,omitempty"`
	Detector        *string `json:"detector,omitempty"`

	// Calibration
	ReferenceDistanceMeters *float64 `json:"reference_distance_meters,omitempty"`

	// Trajectory
	LaunchAngleDegrees *float64 `json:"launch_angle_degrees,omitempty"`
	GravityMps2        *float64 `json:"gravity_mps2,omitempty"`
	TrajectorySamples  *int     `json:"trajectory_samples,omitempty"`
	RefitEveryFrames   *int     `json:"refit_every_frames,omitempty"`
	TrajectoryAxis     *string  `json:"trajectory_axis,omitempty"`

	// Source and reporting
	FrameRate   *float64 `json:"frame_rate,omitempty"`
	ReportUnits *string  `json:"report_units,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTrackerConfig returns a TrackerConfig with all fields set to nil.
func EmptyTrackerConfig() *TrackerConfig {
	return &TrackerConfig{}
}

// DefaultTrackerConfig returns a config with every field populated with its
// default value. It matches config/tracker.defaults.json.
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MotionThreshold:         ptrInt(10),
		MinAreaPixels:           ptrInt(20),
		KernelSize:              ptrInt(3),
		KernelDisk:              ptrBool(true),
		Detector:                ptrString(DetectorNative),
		ReferenceDistanceMeters: ptrFloat64(1.5),
		LaunchAngleDegrees:      ptrFloat64(45),
		GravityMps2:             ptrFloat64(9.8),
		TrajectorySamples:       ptrInt(500),
		RefitEveryFrames:        ptrInt(10),
		TrajectoryAxis:          ptrString(AxisHorizontal),
		FrameRate:               ptrFloat64(30),
		ReportUnits:             ptrString(units.MPS),
	}
}

// LoadTrackerConfig loads a TrackerConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted from
// the file fall back to defaults through the Get* accessors.
func LoadTrackerConfig(path string) (*TrackerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTrackerConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads config/tracker.defaults.json, searching the
// current directory and its parents. Panics if the file cannot be loaded,
// intended for test setup.
func MustLoadDefaultConfig() *TrackerConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTrackerConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TrackerConfig) Validate() error {
	if c.MotionThreshold != nil && (*c.MotionThreshold < 0 || *c.MotionThreshold > 254) {
		return fmt.Errorf("motion_threshold must be between 0 and 254, got %d", *c.MotionThreshold)
	}
	if c.MinAreaPixels != nil && *c.MinAreaPixels < 0 {
		return fmt.Errorf("min_area_pixels must be non-negative, got %d", *c.MinAreaPixels)
	}
	if c.KernelSize != nil && (*c.KernelSize < 1 || *c.KernelSize%2 == 0) {
		return fmt.Errorf("kernel_size must be a positive odd number, got %d", *c.KernelSize)
	}
	if c.Detector != nil && *c.Detector != DetectorNative && *c.Detector != DetectorOpenCV {
		return fmt.Errorf("detector must be %q or %q, got %q", DetectorNative, DetectorOpenCV, *c.Detector)
	}
	if c.ReferenceDistanceMeters != nil && *c.ReferenceDistanceMeters <= 0 {
		return fmt.Errorf("reference_distance_meters must be positive, got %f", *c.ReferenceDistanceMeters)
	}
	if c.LaunchAngleDegrees != nil && (*c.LaunchAngleDegrees <= 0 || *c.LaunchAngleDegrees >= 90) {
		return fmt.Errorf("launch_angle_degrees must be in (0, 90), got %f", *c.LaunchAngleDegrees)
	}
	if c.GravityMps2 != nil && *c.GravityMps2 <= 0 {
		return fmt.Errorf("gravity_mps2 must be positive, got %f", *c.GravityMps2)
	}
	if c.TrajectorySamples != nil && *c.TrajectorySamples < 2 {
		return fmt.Errorf("trajectory_samples must be at least 2, got %d", *c.TrajectorySamples)
	}
	if c.RefitEveryFrames != nil && *c.RefitEveryFrames < 0 {
		return fmt.Errorf("refit_every_frames must be non-negative, got %d", *c.RefitEveryFrames)
	}
	if c.TrajectoryAxis != nil && *c.TrajectoryAxis != AxisHorizontal && *c.TrajectoryAxis != AxisPath {
		return fmt.Errorf("trajectory_axis must be %q or %q, got %q", AxisHorizontal, AxisPath, *c.TrajectoryAxis)
	}
	if c.FrameRate != nil && *c.FrameRate <= 0 {
		return fmt.Errorf("frame_rate must be positive, got %f", *c.FrameRate)
	}
	if c.ReportUnits != nil && !units.IsValid(*c.ReportUnits) {
		return fmt.Errorf("report_units %q is not one of %s", *c.ReportUnits, units.GetValidUnitsString())
	}
	return nil
}

// GetMotionThreshold returns the motion_threshold value or the default.
func (c *TrackerConfig) GetMotionThreshold() int {
	if c.MotionThreshold == nil {
		return 10
	}
	return *c.MotionThreshold
}

// GetMinAreaPixels returns the min_area_pixels value or the default.
func (c *TrackerConfig) GetMinAreaPixels() int {
	if c.MinAreaPixels == nil {
		return 20
	}
	return *c.MinAreaPixels
}

// GetKernelSize returns the kernel_size value or the default.
func (c *TrackerConfig) GetKernelSize() int {
	if c.KernelSize == nil {
		return 3
	}
	return *c.KernelSize
}

// GetKernelDisk returns the kernel_disk value or the default.
func (c *TrackerConfig) GetKernelDisk() bool {
	if c.KernelDisk == nil {
		return true
	}
	return *c.KernelDisk
}

// GetDetector returns the detector backend or the default.
func (c *TrackerConfig) GetDetector() string {
	if c.Detector == nil || *c.Detector == "" {
		return DetectorNative
	}
	return *c.Detector
}

// GetReferenceDistanceMeters returns the reference_distance_meters value or the default.
func (c *TrackerConfig) GetReferenceDistanceMeters() float64 {
	if c.ReferenceDistanceMeters == nil {
		return 1.5
	}
	return *c.ReferenceDistanceMeters
}

// GetLaunchAngleDegrees returns the launch_angle_degrees value or the default.
func (c *TrackerConfig) GetLaunchAngleDegrees() float64 {
	if c.LaunchAngleDegrees == nil {
		return 45
	}
	return *c.LaunchAngleDegrees
}

// GetGravityMps2 returns the gravity_mps2 value or the default.
func (c *TrackerConfig) GetGravityMps2() float64 {
	if c.GravityMps2 == nil {
		return 9.8
	}
	return *c.GravityMps2
}

// GetTrajectorySamples returns the trajectory_samples value or the default.
func (c *TrackerConfig) GetTrajectorySamples() int {
	if c.TrajectorySamples == nil {
		return 500
	}
	return *c.TrajectorySamples
}

// GetRefitEveryFrames returns the refit cadence in frames. Zero disables
// periodic refits; the final fit always runs.
func (c *TrackerConfig) GetRefitEveryFrames() int {
	if c.RefitEveryFrames == nil {
		return 10
	}
	return *c.RefitEveryFrames
}

// GetTrajectoryAxis returns the trajectory_axis value or the default.
func (c *TrackerConfig) GetTrajectoryAxis() string {
	if c.TrajectoryAxis == nil || *c.TrajectoryAxis == "" {
		return AxisHorizontal
	}
	return *c.TrajectoryAxis
}

// GetFrameRate returns the frame_rate value or the default.
func (c *TrackerConfig) GetFrameRate() float64 {
	if c.FrameRate == nil {
		return 30
	}
	return *c.FrameRate
}

// GetReportUnits returns the report_units value or the default.
func (c *TrackerConfig) GetReportUnits() string {
	if c.ReportUnits == nil || *c.ReportUnits == "" {
		return units.MPS
	}
	return *c.ReportUnits
}

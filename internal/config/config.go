package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/xaionaro-go/xsync"

	"github.com/kartoza/kartoza-portal-recorder/internal/models"
)

const (
	// DefaultConfigDir is the default configuration directory
	DefaultConfigDir = ".config/kartoza-portal-recorder"
	// DefaultVideosDir is the default output directory for recordings
	DefaultVideosDir = "Videos"
	// ConfigFileName is the name of the configuration file
	ConfigFileName = "config.json"
)

// Paths for PID and state files
const (
	PIDFile    = "/tmp/kartoza-portal-recorder.pid"
	StatusFile = "/tmp/kartoza-portal-recorder.status"
)

// DefaultProfile is used when no profile was chosen
const DefaultProfile = "webm"

// Config holds the application configuration. It implements
// recording.Settings; a changed restore token is written back to the
// file the config was loaded from.
type Config struct {
	ProfileName    string             `json:"profile"`
	DelaySeconds   int                `json:"record_delay"`
	PointerVisible bool               `json:"show_pointer"`
	MicEnabled     bool               `json:"record_mic"`
	SpeakerEnabled bool               `json:"record_speaker"`
	Mode           models.CaptureMode `json:"capture_mode"`
	VideoFramerate int                `json:"video_framerate"`
	OutputDir      string             `json:"saving_location"`
	Token          string             `json:"screencast_restore_token,omitempty"`

	locker xsync.Mutex
	path   string
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		ProfileName:    DefaultProfile,
		PointerVisible: true,
		Mode:           models.CaptureMonitorWindow,
		OutputDir:      GetDefaultVideosDir(),
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfigDir
	}
	return filepath.Join(home, DefaultConfigDir)
}

// GetConfigPath returns the configuration file path
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), ConfigFileName)
}

// GetDefaultVideosDir returns the default videos directory path
func GetDefaultVideosDir() string {
	if dir := os.Getenv("XDG_VIDEOS_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultVideosDir
	}
	return filepath.Join(home, DefaultVideosDir)
}

// EnsureDirectories creates the necessary directories
func EnsureDirectories() error {
	dirs := []string{
		GetConfigDir(),
		GetDefaultVideosDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// Load loads the configuration from disk
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads the configuration from path. A missing file yields the
// defaults; the config still saves to path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.ProfileName == "" {
		cfg.ProfileName = DefaultProfile
	}
	if cfg.Mode == "" {
		cfg.Mode = models.CaptureMonitorWindow
	}

	return &cfg, nil
}

// Save saves the configuration to disk
func Save(cfg *Config) error {
	if cfg.path == "" {
		cfg.path = GetConfigPath()
	}
	return cfg.save()
}

func (c *Config) save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0644)
}

// ProfileID implements recording.Settings
func (c *Config) ProfileID() string { return c.ProfileName }

// RecordDelay implements recording.Settings
func (c *Config) RecordDelay() time.Duration {
	return time.Duration(c.DelaySeconds) * time.Second
}

// ShowPointer implements recording.Settings
func (c *Config) ShowPointer() bool { return c.PointerVisible }

// RecordMic implements recording.Settings
func (c *Config) RecordMic() bool { return c.MicEnabled }

// RecordSpeaker implements recording.Settings
func (c *Config) RecordSpeaker() bool { return c.SpeakerEnabled }

// CaptureMode implements recording.Settings
func (c *Config) CaptureMode() models.CaptureMode { return c.Mode }

// Framerate implements recording.Settings
func (c *Config) Framerate() int { return c.VideoFramerate }

// SavingLocation implements recording.Settings
func (c *Config) SavingLocation() string { return c.OutputDir }

// RestoreToken implements recording.Settings
func (c *Config) RestoreToken() string {
	return xsync.DoR1(context.Background(), &c.locker, func() string {
		return c.Token
	})
}

// SetRestoreToken implements recording.Settings. The token is persisted
// right away so a crash does not lose the grant.
func (c *Config) SetRestoreToken(token string) error {
	return xsync.DoR1(context.Background(), &c.locker, func() error {
		if c.Token == token {
			return nil
		}
		c.Token = token
		if c.path == "" {
			return nil
		}
		return c.save()
	})
}

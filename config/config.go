// Package config loads the onusync configuration file.
//
// Config file locations (priority order):
//  1. $ONUSYNC_CONFIG
//  2. ./onusync.yaml
//  3. /etc/onusync/config.yaml
//
// Devices and OID catalogs live in the database; the seed section only
// preloads them.
package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nanoncore/nano-onusync/logger"
	"github.com/nanoncore/nano-onusync/types"
)

const (
	// EnvConfigPath is the environment variable for an explicit config path
	EnvConfigPath = "ONUSYNC_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "onusync.yaml"
	// SystemConfigPath is the last place searched
	SystemConfigPath = "/etc/onusync/config.yaml"
)

// Config is the root of the configuration file
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Logging   logger.Config   `yaml:"logging"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Session   SessionConfig   `yaml:"session"`
	SNMP      SNMPConfig      `yaml:"snmp"`
	Probe     ProbeConfig     `yaml:"probe"`
	Seed      SeedConfig      `yaml:"seed"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig sets how often probe and full sync jobs are queued
type SchedulerConfig struct {
	ProbeInterval Duration `yaml:"probe_interval"`
	SyncInterval  Duration `yaml:"sync_interval"`
}

// JobsConfig sizes the job pool
type JobsConfig struct {
	Workers int      `yaml:"workers"`
	Timeout Duration `yaml:"timeout"`
}

// SessionConfig holds shell session defaults; per-device values win
type SessionConfig struct {
	WaitTimeout Duration `yaml:"wait_timeout"`
	ReadTimeout Duration `yaml:"read_timeout"`
	DialTimeout Duration `yaml:"dial_timeout"`
}

// SNMPConfig holds walk settings
type SNMPConfig struct {
	Timeout     Duration `yaml:"timeout"`
	Retries     int      `yaml:"retries"`
	Parallelism int      `yaml:"parallelism"`
}

// ProbeConfig holds reachability probe settings
type ProbeConfig struct {
	Count       int      `yaml:"count"`
	Wait        Duration `yaml:"wait"`
	Timeout     Duration `yaml:"timeout"`
	Parallelism int      `yaml:"parallelism"`
}

// SeedConfig preloads devices and OID catalogs into the store
type SeedConfig struct {
	Devices []DeviceSeed `yaml:"devices,omitempty"`
	OIDs    []OIDSeed    `yaml:"oids,omitempty"`
}

// DeviceSeed is one device entry of the seed section
type DeviceSeed struct {
	ID           int64             `yaml:"id"`
	Name         string            `yaml:"name"`
	Vendor       string            `yaml:"vendor"`
	Model        string            `yaml:"model,omitempty"`
	Address      string            `yaml:"address"`
	TelnetPort   int               `yaml:"telnet_port,omitempty"`
	SSHPort      int               `yaml:"ssh_port,omitempty"`
	SNMPPort     int               `yaml:"snmp_port,omitempty"`
	Username     string            `yaml:"username,omitempty"`
	Password     string            `yaml:"password,omitempty"`
	Community    string            `yaml:"community,omitempty"`
	ReadTimeout  Duration          `yaml:"read_timeout,omitempty"`
	CommandDelay Duration          `yaml:"command_delay,omitempty"`
	Metadata     map[string]string `yaml:"metadata,omitempty"`
}

// Endpoint converts the seed into a device endpoint
func (d DeviceSeed) Endpoint() *types.DeviceEndpoint {
	community := d.Community
	if community == "" {
		community = types.DefaultCommunity
	}
	return &types.DeviceEndpoint{
		ID:           d.ID,
		Name:         d.Name,
		Vendor:       types.Vendor(d.Vendor),
		Model:        types.Model(d.Model),
		Address:      d.Address,
		TelnetPort:   d.TelnetPort,
		SSHPort:      d.SSHPort,
		SNMPPort:     d.SNMPPort,
		Username:     d.Username,
		Password:     d.Password,
		Community:    community,
		ReadTimeout:  d.ReadTimeout.Duration(),
		CommandDelay: d.CommandDelay.Duration(),
		Metadata:     d.Metadata,
	}
}

// OIDSeed is the catalog of one (vendor, model)
type OIDSeed struct {
	Vendor     string            `yaml:"vendor"`
	Model      string            `yaml:"model,omitempty"`
	Identifier string            `yaml:"identifier_key,omitempty"`
	Fields     map[string]string `yaml:"fields"`
}

// Table converts the seed into an OID table ordered by field name
func (o OIDSeed) Table() types.OIDTable {
	names := make([]string, 0, len(o.Fields))
	for name := range o.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	table := types.OIDTable{Identifier: types.Field(o.Identifier)}
	for _, name := range names {
		table.Entries = append(table.Entries, types.OIDEntry{Field: types.Field(name), OID: o.Fields[name]})
	}
	return table
}

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return &cfg, path, nil
}

// FindConfigPath returns the first existing config file, or "".
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" && fileExists(path) {
		return path
	}
	if fileExists(ConfigFileName) {
		return ConfigFileName
	}
	if fileExists(SystemConfigPath) {
		return SystemConfigPath
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DefaultConfig returns the defaults used when no file is found
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "./onusync.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	setDuration(&c.Scheduler.ProbeInterval, 60*time.Second)
	setDuration(&c.Scheduler.SyncInterval, 30*time.Minute)

	if c.Jobs.Workers <= 0 {
		c.Jobs.Workers = 4
	}
	setDuration(&c.Jobs.Timeout, 5*time.Minute)

	setDuration(&c.Session.WaitTimeout, 15*time.Second)
	setDuration(&c.Session.ReadTimeout, 5*time.Second)
	setDuration(&c.Session.DialTimeout, 10*time.Second)

	setDuration(&c.SNMP.Timeout, 10*time.Second)
	if c.SNMP.Retries <= 0 {
		c.SNMP.Retries = 3
	}
	if c.SNMP.Parallelism <= 0 {
		c.SNMP.Parallelism = 8
	}

	if c.Probe.Count <= 0 {
		c.Probe.Count = 5
	}
	setDuration(&c.Probe.Wait, 2*time.Second)
	setDuration(&c.Probe.Timeout, 15*time.Second)
	if c.Probe.Parallelism <= 0 {
		c.Probe.Parallelism = 16
	}
}

func setDuration(d *Duration, def time.Duration) {
	if *d <= 0 {
		*d = Duration(def)
	}
}

// Validate rejects seed entries that cannot be stored.
func (c *Config) Validate() error {
	for i, d := range c.Seed.Devices {
		if d.Name == "" || d.Address == "" || d.Vendor == "" {
			return fmt.Errorf("seed device %d: name, vendor and address are required", i)
		}
	}
	for i, o := range c.Seed.OIDs {
		if o.Vendor == "" || len(o.Fields) == 0 {
			return fmt.Errorf("seed oids %d: vendor and fields are required", i)
		}
	}
	return nil
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML accepts Go duration strings ("15s") or plain seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		var secs int64
		if err2 := value.Decode(&secs); err2 != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		parsed = time.Duration(secs) * time.Second
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "drivetrain.cfg.json"

// ChainConfig holds path generation and rebuild settings
type ChainConfig struct {
	Clearance     float64 `json:"clearance" mapstructure:"clearance"`
	SamplesPerCog int     `json:"samplesPerCog" mapstructure:"samplesPerCog"`
	LinkCount     int     `json:"linkCount" mapstructure:"linkCount"`
	Compliance    float64 `json:"compliance" mapstructure:"compliance"`
	Coalesce      bool    `json:"coalesce" mapstructure:"coalesce"`
}

// LinkConfig holds the physical properties of one chain link
type LinkConfig struct {
	Radius   float64 `json:"radius" mapstructure:"radius"`
	Mass     float64 `json:"mass" mapstructure:"mass"`
	Friction float64 `json:"friction" mapstructure:"friction"`
}

// CogConfig places one cog
type CogConfig struct {
	X      float64 `json:"x" mapstructure:"x"`
	Y      float64 `json:"y" mapstructure:"y"`
	Radius float64 `json:"radius" mapstructure:"radius"`
}

// CogsConfig holds both cogs and the radius limits for edits
type CogsConfig struct {
	Front     CogConfig `json:"front" mapstructure:"front"`
	Rear      CogConfig `json:"rear" mapstructure:"rear"`
	MinRadius float64   `json:"minRadius" mapstructure:"minRadius"`
	MaxRadius float64   `json:"maxRadius" mapstructure:"maxRadius"`
}

// DriveConfig holds crank drive settings
type DriveConfig struct {
	Torque float64 `json:"torque" mapstructure:"torque"`
	MaxRPM float64 `json:"maxRpm" mapstructure:"maxRpm"`
}

// PhysicsConfig selects and tunes the physics backend
type PhysicsConfig struct {
	Backend            string  `json:"backend" mapstructure:"backend"`
	Gravity            float64 `json:"gravity" mapstructure:"gravity"`
	TimeStep           float64 `json:"timeStep" mapstructure:"timeStep"`
	VelocityIterations int     `json:"velocityIterations" mapstructure:"velocityIterations"`
	PositionIterations int     `json:"positionIterations" mapstructure:"positionIterations"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds sqlite storage backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// PostgresConfig holds postgres storage backend settings
type PostgresConfig struct {
	FlushInterval time.Duration `json:"flushInterval" mapstructure:"flushInterval"`
	BufferSize    int           `json:"bufferSize" mapstructure:"bufferSize"`
}

// StorageConfig selects the rebuild journal backend
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	Memory   MemoryConfig   `json:"memory" mapstructure:"memory"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// DBConfig holds postgres connection settings
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds InfluxDB connection settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// APIConfig holds the journal upload settings
type APIConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	ServerURL string `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string `json:"apiKey" mapstructure:"apiKey"`
}

// MonitorConfig holds the periodic status reporter settings
type MonitorConfig struct {
	Interval   time.Duration `json:"interval" mapstructure:"interval"`
	StatusFile string        `json:"statusFile" mapstructure:"statusFile"`
}

// SetDefaults registers every default value. Load calls it; the wrap command
// calls it directly when no config file is wanted.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./drivetrainlogs")

	viper.SetDefault("chain.clearance", 1.35)
	viper.SetDefault("chain.samplesPerCog", 60)
	viper.SetDefault("chain.linkCount", 60)
	viper.SetDefault("chain.compliance", 0.0)
	viper.SetDefault("chain.coalesce", true)

	viper.SetDefault("link.radius", 0.5)
	viper.SetDefault("link.mass", 0.01)
	viper.SetDefault("link.friction", 1.0)

	viper.SetDefault("cogs.front.x", 0.0)
	viper.SetDefault("cogs.front.y", 0.0)
	viper.SetDefault("cogs.front.radius", 5.0)
	viper.SetDefault("cogs.rear.x", 40.0)
	viper.SetDefault("cogs.rear.y", 0.0)
	viper.SetDefault("cogs.rear.radius", 5.0)
	viper.SetDefault("cogs.minRadius", 1.0)
	viper.SetDefault("cogs.maxRadius", 20.0)

	viper.SetDefault("drive.torque", 2000.0)
	viper.SetDefault("drive.maxRpm", 90.0)

	viper.SetDefault("physics.backend", "box2d")
	viper.SetDefault("physics.gravity", -100.0)
	viper.SetDefault("physics.timeStep", 1.0/60.0)
	viper.SetDefault("physics.velocityIterations", 8)
	viper.SetDefault("physics.positionIterations", 3)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./rebuilds")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "./rebuilds/journal.db")
	viper.SetDefault("storage.postgres.flushInterval", "2s")
	viper.SetDefault("storage.postgres.bufferSize", 10000)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "drivetrain")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "drivetrain")
	viper.SetDefault("influx.bucket", "chain_rebuilds")

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("monitor.interval", "1s")
	viper.SetDefault("monitor.statusFile", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "drivetrain")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetChainConfig returns the chain settings.
func GetChainConfig() ChainConfig {
	return ChainConfig{
		Clearance:     viper.GetFloat64("chain.clearance"),
		SamplesPerCog: viper.GetInt("chain.samplesPerCog"),
		LinkCount:     viper.GetInt("chain.linkCount"),
		Compliance:    viper.GetFloat64("chain.compliance"),
		Coalesce:      viper.GetBool("chain.coalesce"),
	}
}

// GetLinkConfig returns the link settings.
func GetLinkConfig() LinkConfig {
	return LinkConfig{
		Radius:   viper.GetFloat64("link.radius"),
		Mass:     viper.GetFloat64("link.mass"),
		Friction: viper.GetFloat64("link.friction"),
	}
}

func getCog(prefix string) CogConfig {
	return CogConfig{
		X:      viper.GetFloat64(prefix + ".x"),
		Y:      viper.GetFloat64(prefix + ".y"),
		Radius: viper.GetFloat64(prefix + ".radius"),
	}
}

// GetCogsConfig returns the cog placement and radius limits.
func GetCogsConfig() CogsConfig {
	return CogsConfig{
		Front:     getCog("cogs.front"),
		Rear:      getCog("cogs.rear"),
		MinRadius: viper.GetFloat64("cogs.minRadius"),
		MaxRadius: viper.GetFloat64("cogs.maxRadius"),
	}
}

// GetDriveConfig returns the crank drive settings.
func GetDriveConfig() DriveConfig {
	return DriveConfig{
		Torque: viper.GetFloat64("drive.torque"),
		MaxRPM: viper.GetFloat64("drive.maxRpm"),
	}
}

// GetPhysicsConfig returns the physics backend settings.
func GetPhysicsConfig() PhysicsConfig {
	return PhysicsConfig{
		Backend:            viper.GetString("physics.backend"),
		Gravity:            viper.GetFloat64("physics.gravity"),
		TimeStep:           viper.GetFloat64("physics.timeStep"),
		VelocityIterations: viper.GetInt("physics.velocityIterations"),
		PositionIterations: viper.GetInt("physics.positionIterations"),
	}
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		Postgres: PostgresConfig{
			FlushInterval: viper.GetDuration("storage.postgres.flushInterval"),
			BufferSize:    viper.GetInt("storage.postgres.bufferSize"),
		},
	}
}

// GetDBConfig returns the postgres connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the InfluxDB connection settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetAPIConfig returns the journal upload settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		Enabled:   viper.GetBool("api.enabled"),
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
	}
}

// GetMonitorConfig returns the status reporter settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}

// Package config provides configuration management for the playlake CLI.
//
// Configuration is layered with koanf: built-in defaults, then
// playlake.yaml, then PLAYLAKE_* environment variables, then command-line
// flags.
package config

// Config holds all CLI configuration options.
type Config struct {
	SourceRoot   string            `koanf:"source_root"`
	DestRoot     string            `koanf:"dest_root"`
	CatalogPath  string            `koanf:"catalog_path"`
	EventsPath   string            `koanf:"events_path"`
	TimeZone     string            `koanf:"timezone"`
	Parallelism  int               `koanf:"parallelism"`
	StatePath    string            `koanf:"state_path"`
	Verbose      bool              `koanf:"verbose"`
	LogFormat    string            `koanf:"log_format"`
	OutputFormat string            `koanf:"output"`
	Join         JoinConfig        `koanf:"join"`
	Target       *TargetConfig     `koanf:"target"`
	Credentials  CredentialsConfig `koanf:"credentials"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-"`
}

// JoinConfig selects how plays are matched to songs.
type JoinConfig struct {
	Strategy string `koanf:"strategy"`
	Mode     string `koanf:"mode"`
}

// TargetConfig configures the execution session.
type TargetConfig struct {
	Type     string            `koanf:"type"`
	Database string            `koanf:"database"`
	Options  map[string]string `koanf:"options"`
	Params   map[string]any    `koanf:"params"`
}

// CredentialsConfig selects the object-store credential provider.
type CredentialsConfig struct {
	Provider        string `koanf:"provider"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	SessionToken    string `koanf:"session_token"`
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`
	Profile         string `koanf:"profile"`
}

// Default configuration values.
const (
	DefaultSourceRoot  = "data"
	DefaultDestRoot    = "out"
	DefaultCatalogPath = "song_data/**/*.json"
	DefaultEventsPath  = "log_data/**/*.json"
	DefaultTimeZone    = "UTC"
	DefaultParallelism = 2
	DefaultStateFile   = ".playlake/state.db"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogFormat   = "text"
	DefaultTargetType  = "duckdb"
	DefaultJoin        = "title"
	DefaultJoinMode    = "inner"
	DefaultCredentials = "none"
)

// ConfigFileNames are the config file names looked up in the project root.
var ConfigFileNames = []string{"playlake.yaml", "playlake.yml"}

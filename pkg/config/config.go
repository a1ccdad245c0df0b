package config

// Config is the root application configuration, loaded from YAML.

type Config struct {
	Logger      LoggerConfig      `yaml:"logger" validate:"required"`
	AdminServer AdminServerConfig `yaml:"admin_server" validate:"required"`
	JournalStore JournalStoreConfig `yaml:"journal_store" validate:"required"`
	Clerk       ClerkConfig       `yaml:"clerk" validate:"required"`
	Cluster     ClusterConfig     `yaml:"cluster"`
}

type AdminServerConfig struct {
	Port int `yaml:"port" validate:"required,min=1,max=65535"`
}

// JournalStoreConfig configures the on-disk journal file store.
type JournalStoreConfig struct {
	Dir           string `yaml:"dir" validate:"required"`
	MaxSizeBytes  int64  `yaml:"max_size_bytes" validate:"required,min=1"`
	CompactionTag string `yaml:"compaction_tag" validate:"required"`
}

// ClerkConfig configures a Clerk's compaction behavior. Field names
// mirror clerk.Options directly.
type ClerkConfig struct {
	MaxRunLength int                 `yaml:"max_run_length" validate:"min=0"`
	SampleSize   int                 `yaml:"sample_size" validate:"min=0"`
	BatchSize    int                 `yaml:"batch_size" validate:"min=0"`
	MailboxSize  int                 `yaml:"mailbox_size" validate:"min=0"`
	Strategies   map[string]string   `yaml:"strategies"` // tag -> "retain" | "recalc" | "recovr"
}

// ClusterConfig configures ZooKeeper-based clerk registration. Servers
// empty means registration is disabled — a common single-node deployment
// mode.
type ClusterConfig struct {
	ZKServers []string `yaml:"zk_servers"`
	RootPath  string   `yaml:"root_path"`
	LocalAddr string   `yaml:"local_addr"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "DEBUG",
			JSON:  false,
		},
		AdminServer: AdminServerConfig{
			Port: 8090,
		},
		JournalStore: JournalStoreConfig{
			Dir:           "./data/journal",
			MaxSizeBytes:  64 << 20,
			CompactionTag: "default",
		},
		Clerk: ClerkConfig{
			MaxRunLength: 4,
			SampleSize:   200,
			BatchSize:    32,
			MailboxSize:  3,
			Strategies:   map[string]string{"default": "retain"},
		},
	}
}

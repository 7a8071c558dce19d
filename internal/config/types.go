package config

// Config is the top-level docswitch configuration, corresponding to .docswitch.yml.
type Config struct {
	Shell            string       `yaml:"shell" koanf:"shell"`
	Table            string       `yaml:"table" koanf:"table"`
	LandingPage      string       `yaml:"landing_page" koanf:"landing_page"`
	ContainerID      string       `yaml:"container_id" koanf:"container_id"`
	ReplaceableClass string       `yaml:"replaceable_class" koanf:"replaceable_class"`
	OutputDir        string       `yaml:"output_dir" koanf:"output_dir"`
	Assets           []string     `yaml:"assets" koanf:"assets"`
	Exclude          []string     `yaml:"exclude" koanf:"exclude"`
	EscapeMarkup     bool         `yaml:"escape_markup" koanf:"escape_markup"`
	Server           ServerConfig `yaml:"server" koanf:"server"`
}

// ServerConfig holds dev server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	Watch           bool `yaml:"watch" koanf:"watch"`
}

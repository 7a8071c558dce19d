package config

// DefaultConfigFile is the config path used when --config is not given.
const DefaultConfigFile = ".docswitch.yml"

// DefaultAssets are copied next to the rendered pages by default.
var DefaultAssets = []string{
	"**/*.css",
	"**/*.js",
	"**/*.{png,jpg,jpeg,gif,svg,ico,webp}",
	"**/*.{woff,woff2,ttf}",
	"**/*.wasm",
}

// DefaultExcludes are glob patterns never copied into the output.
var DefaultExcludes = []string{
	".git/**",
	"node_modules/**",
	"*.md",
	".docswitch.yml",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Shell:            "index.html",
		Table:            "pages.yml",
		LandingPage:      "main",
		ContainerID:      "maindiv",
		ReplaceableClass: "replacable",
		OutputDir:        "site",
		Assets:           DefaultAssets,
		Exclude:          DefaultExcludes,
		Server: ServerConfig{
			Port:  8080,
			Watch: true,
		},
	}
}

// Package config builds the immutable configuration value the agent is
// constructed with. Everything is resolved once at process start; components
// receive the value by reference and never consult the environment again.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/KevinLopezPastor/qmc-agent/pkg/partition"
)

// SourceConfig holds one console's connection settings and selector table.
type SourceConfig struct {
	URL       string
	Username  string
	Password  string
	Selectors map[string]string
	StatePath string
	Groups    []partition.Group
}

// Config is the agent's full configuration.
type Config struct {
	QMC       SourceConfig
	NPrinting SourceConfig

	// LLM collaborator
	LLMAPIKey string
	LLMModel  string

	// Scraping
	MaxRetries          int
	Headless            bool
	TimeoutMS           int
	PaginationMaxClicks int

	// Isolated worker scripts
	ScriptsDir    string
	ScriptCommand string
	ScriptTimeout time.Duration

	// Output / persistence
	OutputDir string
	DBConnStr string
}

// Load reads .env (when present) and the environment into a Config. An
// optional GROUPS_FILE yaml overrides the built-in monitored group tables.
func Load() (*Config, error) {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := &Config{
		QMC: SourceConfig{
			URL:       getEnv("QMC_URL", "https://apqs.grupoefe.pe/qmc/tasks"),
			Username:  os.Getenv("QMC_USERNAME"),
			Password:  os.Getenv("QMC_PASSWORD"),
			Selectors: qmcSelectors,
			StatePath: getEnv("QMC_STATE_PATH", "browser_state.json"),
			Groups:    defaultQMCGroups,
		},
		NPrinting: SourceConfig{
			URL:       getEnv("NPRINTING_URL", "https://10.142.16.45:4993/#/tasks/executions"),
			Username:  os.Getenv("NPRINTING_EMAIL"),
			Password:  os.Getenv("NPRINTING_PASSWORD"),
			Selectors: nprintingSelectors,
			StatePath: getEnv("NPRINTING_STATE_PATH", "nprinting_browser_state.json"),
			Groups:    defaultNPrintingGroups,
		},
		LLMAPIKey:           os.Getenv("GENAI_API_KEY"),
		LLMModel:            getEnv("LLM_MODEL", "gemini-2.0-flash"),
		MaxRetries:          getEnvInt("MAX_RETRIES", 3),
		Headless:            getEnv("HEADLESS", "true") == "true",
		TimeoutMS:           getEnvInt("TIMEOUT_MS", 60000),
		PaginationMaxClicks: getEnvInt("PAGINATION_MAX_CLICKS", 10),
		ScriptsDir:          getEnv("SCRIPTS_DIR", "scripts"),
		ScriptCommand:       getEnv("SCRIPT_COMMAND", "python3"),
		ScriptTimeout:       time.Duration(getEnvInt("SCRIPT_TIMEOUT_S", 300)) * time.Second,
		OutputDir:           getEnv("OUTPUT_DIR", "reportes"),
		DBConnStr:           os.Getenv("DATABASE_URL"),
	}

	if path := os.Getenv("GROUPS_FILE"); path != "" {
		if err := cfg.loadGroupsFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Validate returns the missing settings required for a QMC run.
func (c *Config) Validate() []string {
	var missing []string
	if c.QMC.Username == "" {
		missing = append(missing, "QMC_USERNAME")
	}
	if c.QMC.Password == "" {
		missing = append(missing, "QMC_PASSWORD")
	}
	if c.LLMAPIKey == "" {
		missing = append(missing, "GENAI_API_KEY")
	}
	return missing
}

// ValidateNPrinting returns the missing settings required for the NPrinting
// chain.
func (c *Config) ValidateNPrinting() []string {
	var missing []string
	if c.NPrinting.Username == "" {
		missing = append(missing, "NPRINTING_EMAIL")
	}
	if c.NPrinting.Password == "" {
		missing = append(missing, "NPRINTING_PASSWORD")
	}
	return missing
}

// groupsFile is the optional YAML override for the monitored group tables.
type groupsFile struct {
	QMC       []partition.Group `yaml:"qmc"`
	NPrinting []partition.Group `yaml:"nprinting"`
}

func (c *Config) loadGroupsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read groups file %s", path)
	}
	var gf groupsFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return errors.Wrapf(err, "parse groups file %s", path)
	}
	if len(gf.QMC) > 0 {
		c.QMC.Groups = normalizeGroups(gf.QMC, partition.MatchTag)
	}
	if len(gf.NPrinting) > 0 {
		c.NPrinting.Groups = normalizeGroups(gf.NPrinting, partition.MatchPrefix)
	}
	return nil
}

func normalizeGroups(groups []partition.Group, kind partition.MatchKind) []partition.Group {
	for i := range groups {
		if groups[i].Match == "" {
			groups[i].Match = kind
		}
	}
	return groups
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

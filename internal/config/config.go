// Package config resolves kgbuild settings from .env, the environment and
// command-line flags, in that order of increasing precedence.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	LogMode  string
	LLM      LLMConfig
	Build    BuildConfig
	Files    FileConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Neo4j    Neo4jConfig
	S3       S3Config
}

type LLMConfig struct {
	Provider  string
	APIKey    string
	Model     string
	PromptDir string
}

type BuildConfig struct {
	MaxNodes       int
	RecursiveDepth int
	PaceDelay      time.Duration
	MaxCycles      int
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	// RunTimeout bounds the whole build; zero means no deadline.
	RunTimeout time.Duration
}

type FileConfig struct {
	SeedFile  string
	OutFile   string
	VisFile   string
	DotFile   string
	CacheFile string
	// Resume seeds the run from OutFile instead of SeedFile.
	Resume bool
}

type RedisConfig struct {
	URL string
	Key string
}

type PostgresConfig struct {
	DSN string
}

type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// resolveCredentials fills the key and model from the provider's own
// variables when they are still empty.
func (l *LLMConfig) resolveCredentials() {
	prefix := strings.ToUpper(l.Provider)
	if prefix != "GROQ" && prefix != "GEMINI" {
		return
	}
	if l.APIKey == "" {
		l.APIKey = envString(prefix+"_API_KEY", "")
	}
	if l.Model == "" {
		l.Model = envString(prefix+"_MODEL", "")
	}
}

func (c S3Config) Enabled() bool { return c.Endpoint != "" && c.Bucket != "" }

// FromEnv loads .env (if present) and reads every setting from the
// environment, filling defaults for anything unset.
func FromEnv() *Config {
	_ = godotenv.Load()

	provider := strings.ToLower(envString("LLM_PROVIDER", "groq"))
	llm := LLMConfig{Provider: provider, PromptDir: envString("KG_PROMPT_DIR", "")}
	llm.resolveCredentials()

	return &Config{
		LogMode: envString("LOG_MODE", "dev"),
		LLM:     llm,
		Build: BuildConfig{
			MaxNodes:       envInt("KG_MAX_NODES", 500),
			RecursiveDepth: envInt("KG_RECURSIVE_DEPTH", 2),
			PaceDelay:      envDuration("KG_PACE_DELAY", 1200*time.Millisecond),
			MaxCycles:      envInt("KG_MAX_CYCLES", 10000),
			MaxRetries:     envInt("KG_MAX_RETRIES", 2),
			RetryBaseDelay: envDuration("KG_RETRY_BASE_DELAY", 2*time.Second),
			RetryMaxDelay:  envDuration("KG_RETRY_MAX_DELAY", 30*time.Second),
			RunTimeout:     envDuration("KG_RUN_TIMEOUT", 0),
		},
		Files: FileConfig{
			SeedFile:  envString("KG_SEED_FILE", "seeds.json"),
			OutFile:   envString("KG_OUT_FILE", "kg_final.json"),
			VisFile:   envString("KG_VIS_FILE", "kg_vis.html"),
			DotFile:   envString("KG_DOT_FILE", ""),
			CacheFile: envString("KG_CACHE_FILE", "llm_cache.json"),
		},
		Redis: RedisConfig{
			URL: envString("KG_CACHE_REDIS_URL", ""),
			Key: envString("KG_CACHE_REDIS_KEY", "kg:expansions"),
		},
		Postgres: PostgresConfig{DSN: envString("KG_PG_DSN", "")},
		Neo4j: Neo4jConfig{
			URI:      envString("NEO4J_URI", ""),
			User:     envString("NEO4J_USER", "neo4j"),
			Password: envString("NEO4J_PASSWORD", ""),
			Database: envString("NEO4J_DATABASE", ""),
		},
		S3: S3Config{
			Endpoint:  envString("KG_S3_ENDPOINT", ""),
			Region:    envString("KG_S3_REGION", "us-east-1"),
			AccessKey: envString("KG_S3_ACCESS_KEY", ""),
			SecretKey: envString("KG_S3_SECRET_KEY", ""),
			Bucket:    envString("KG_S3_BUCKET", ""),
			Prefix:    envString("KG_S3_PREFIX", ""),
			UseSSL:    envBool("KG_S3_USE_SSL", true),
		},
	}
}

// Load reads the environment and then applies kgbuild's flags from args.
// Flags default to the environment values, so an explicit flag always wins.
func Load(args []string) (*Config, error) {
	c := FromEnv()
	envProvider := c.LLM.Provider
	fs := flag.NewFlagSet("kgbuild", flag.ContinueOnError)
	fs.StringVar(&c.LLM.Provider, "provider", c.LLM.Provider, "oracle provider: groq, gemini or fake")
	fs.StringVar(&c.LLM.Model, "model", c.LLM.Model, "provider model id")
	fs.StringVar(&c.LLM.PromptDir, "prompt-dir", c.LLM.PromptDir, "directory to save rendered prompts (empty disables)")
	fs.IntVar(&c.Build.MaxNodes, "max-nodes", c.Build.MaxNodes, "global node budget")
	fs.IntVar(&c.Build.RecursiveDepth, "depth", c.Build.RecursiveDepth, "expansion depth below each seed")
	fs.DurationVar(&c.Build.PaceDelay, "pace", c.Build.PaceDelay, "pause between oracle calls")
	fs.IntVar(&c.Build.MaxRetries, "retries", c.Build.MaxRetries, "oracle retries after the first attempt")
	fs.DurationVar(&c.Build.RunTimeout, "timeout", c.Build.RunTimeout, "deadline for the whole build (0 = none)")
	fs.StringVar(&c.Files.SeedFile, "seeds", c.Files.SeedFile, "seed list (.json or .yaml)")
	fs.StringVar(&c.Files.OutFile, "out", c.Files.OutFile, "finalized node list")
	fs.StringVar(&c.Files.VisFile, "vis", c.Files.VisFile, "interactive HTML view (empty disables)")
	fs.StringVar(&c.Files.DotFile, "dot", c.Files.DotFile, "Graphviz export (empty disables)")
	fs.StringVar(&c.Files.CacheFile, "cache", c.Files.CacheFile, "oracle cache file, ignored when KG_CACHE_REDIS_URL is set")
	fs.BoolVar(&c.Files.Resume, "resume", c.Files.Resume, "seed from the existing -out file")
	fs.StringVar(&c.LogMode, "log", c.LogMode, "log mode: dev or prod")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider != envProvider {
		c.LLM.APIKey = ""
		if !flagSet(fs, "model") {
			c.LLM.Model = ""
		}
	}
	c.LLM.resolveCredentials()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "groq", "gemini":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("config: api key for provider %q is not set", c.LLM.Provider)
		}
	case "fake":
	default:
		return fmt.Errorf("config: unknown provider %q", c.LLM.Provider)
	}
	if c.Build.MaxNodes <= 0 {
		return fmt.Errorf("config: max nodes must be positive, got %d", c.Build.MaxNodes)
	}
	if c.Build.RecursiveDepth < 0 {
		return fmt.Errorf("config: depth must not be negative, got %d", c.Build.RecursiveDepth)
	}
	if c.Build.MaxRetries < 0 {
		return fmt.Errorf("config: retries must not be negative, got %d", c.Build.MaxRetries)
	}
	if strings.TrimSpace(c.Files.OutFile) == "" {
		return fmt.Errorf("config: output file is required")
	}
	return nil
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

// envDuration accepts Go durations ("1.5s") or plain seconds ("1.2").
func envDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return def
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

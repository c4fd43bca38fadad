// Package config loads server settings from a dotenv file, the environment
// and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/erazemk/rewear/internal/model"
)

// DefaultEnvFile is read if present. REWEAR_ENV_FILE names another file,
// which then must exist.
const DefaultEnvFile = "config.env"

// Config holds the server settings. It is not modified after Load.
type Config struct {
	DBPath     string
	Addr       string
	AdminEmail string
	LogPath    string
	LogFormat  string
	Moderation bool
	// RateLimit is the number of auth requests allowed per minute per
	// client address; 0 disables limiting.
	RateLimit int

	// Args are the positional arguments left after flags, e.g. a subcommand.
	Args []string
}

// Defaults.
const (
	DefaultDBPath     = "rewear.sqlite3"
	DefaultAddr       = ":8080"
	DefaultAdminEmail = "admin@rewear.local"
	DefaultRateLimit  = 20
)

const usage = `Usage: rewear [flags] [command]

Commands:
  serve                   run the server (default)
  promote <email>         grant the admin role to an existing user

Flags:
  -d, -db <path>          SQLite database path (env REWEAR_DB, default: rewear.sqlite3)
  -a, -addr <host:port>   listen address (env REWEAR_ADDR, default: :8080)
  -u, -admin <email>      admin email on first run (env REWEAR_ADMIN_EMAIL, default: admin@rewear.local)
  -l, -log <path>         log file path (env REWEAR_LOG, default: stdout/stderr only)
  -log-format <format>    text or json (env REWEAR_LOG_FORMAT, default: text)
  -m, -moderation         new listings wait for admin approval (env REWEAR_MODERATION)
  -rate-limit <n>         auth requests per minute per client, 0 = off (env REWEAR_RATE_LIMIT, default: 20)
  -h, -help               show this help and exit

Settings are also read from config.env, or the file named by REWEAR_ENV_FILE.
`

// Load reads the dotenv file, then the environment, then parses args.
// flag.ErrHelp is returned as is after printing usage to out.
func Load(args []string, out io.Writer) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &Config{
		DBPath:     envString("REWEAR_DB", DefaultDBPath),
		Addr:       envString("REWEAR_ADDR", DefaultAddr),
		AdminEmail: envString("REWEAR_ADMIN_EMAIL", DefaultAdminEmail),
		LogPath:    envString("REWEAR_LOG", ""),
		LogFormat:  envString("REWEAR_LOG_FORMAT", "text"),
	}
	var err error
	if cfg.Moderation, err = envBool("REWEAR_MODERATION", false); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = envInt("REWEAR_RATE_LIMIT", DefaultRateLimit); err != nil {
		return nil, err
	}

	flags := flag.NewFlagSet("rewear", flag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() { fmt.Fprint(out, usage) }

	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	flags.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	flags.StringVar(&cfg.Addr, "a", cfg.Addr, "")
	flags.StringVar(&cfg.AdminEmail, "admin", cfg.AdminEmail, "")
	flags.StringVar(&cfg.AdminEmail, "u", cfg.AdminEmail, "")
	flags.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	flags.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "")
	flags.BoolVar(&cfg.Moderation, "moderation", cfg.Moderation, "")
	flags.BoolVar(&cfg.Moderation, "m", cfg.Moderation, "")
	flags.IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	cfg.Args = flags.Args()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.Addr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format %q (want text or json)", c.LogFormat)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	email, err := model.NormalizeEmail(c.AdminEmail)
	if err != nil {
		return fmt.Errorf("invalid admin email %q", c.AdminEmail)
	}
	c.AdminEmail = email
	return nil
}

func loadEnvFile() error {
	path, named := os.LookupEnv("REWEAR_ENV_FILE")
	if !named {
		path = DefaultEnvFile
	}

	// godotenv.Load never overrides variables already set in the environment.
	err := godotenv.Load(path)
	if err != nil && !named && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: want true or false", key, v)
	}
	return b, nil
}

func envInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: want an integer", key, v)
	}
	return n, nil
}

// Package config assembles the run configuration from defaults, an optional
// YAML file, the environment (and .env) and command line flags, in that order
// of increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/raywall/gh-productivity/cache"
	"github.com/raywall/gh-productivity/domain"
	"github.com/raywall/gh-productivity/source"
)

// ErrMissingToken is returned when no GitHub token is configured.
var ErrMissingToken = errors.New("GITHUB_TOKEN is required")

const (
	DefaultOutput   = "metrics.json"
	DefaultLogLevel = "info"
	DefaultTopFiles = 10
	// DefaultWindowDays is the number of calendar days analyzed, today
	// included, when no start date is given.
	DefaultWindowDays = 30
)

// Config is everything a run needs.
type Config struct {
	Token       string `validate:"required"`
	BaseURL     string `validate:"omitempty,url"`
	DatabaseURL string
	LogLevel    string `validate:"oneof=debug info warn error"`
	Development bool

	Repositories []domain.Repository `validate:"required_without=Org"`
	Org          string
	Start        time.Time `validate:"required"`
	End          time.Time `validate:"required,gtfield=Start"`

	Output         string `validate:"required"`
	Summary        bool
	CacheDir       string `validate:"required"`
	ClearCache     bool
	Concurrency    int `validate:"min=1,max=100"`
	PageSize       int `validate:"min=1,max=100"`
	RateLimitFloor int `validate:"min=0"`

	Dora           bool
	IncidentLabels []string
	TopFiles       int `validate:"min=0"`
	FetchTimeline  bool

	Board     *BoardConfig
	ProjectV2 *ProjectV2Config
}

// BoardConfig names a classic project board.
type BoardConfig struct {
	Name       string `yaml:"name" validate:"required"`
	DoneColumn string `yaml:"done_column" validate:"required"`
}

// ProjectV2Config locates a Projects (v2) board.
type ProjectV2Config struct {
	Owner          string `yaml:"owner" validate:"required"`
	Number         int    `yaml:"number" validate:"min=1"`
	IterationField string `yaml:"iteration_field"`
	StatusField    string `yaml:"status_field"`
	DoneStatus     string `yaml:"done_status" validate:"required"`
}

// File is the layout of the optional YAML configuration file.
type File struct {
	Repositories   []string         `yaml:"repositories"`
	Organization   string           `yaml:"organization"`
	StartDate      string           `yaml:"start_date"`
	EndDate        string           `yaml:"end_date"`
	Output         string           `yaml:"output"`
	CacheDir       string           `yaml:"cache_dir"`
	Concurrency    int              `yaml:"concurrency"`
	RateLimitFloor int              `yaml:"rate_limit_floor"`
	IncidentLabels []string         `yaml:"incident_labels"`
	TopFiles       *int             `yaml:"top_files"`
	Dora           *bool            `yaml:"dora"`
	Timeline       *bool            `yaml:"timeline"`
	Board          *BoardConfig     `yaml:"board"`
	ProjectV2      *ProjectV2Config `yaml:"project_v2"`
}

// flags are the raw command line values.
type flags struct {
	repo, repos, org         string
	startDate, endDate       string
	configFile, envFile      string
	output, cacheDir         string
	logLevel                 string
	concurrency              int
	clearCache, summary, dev bool
	noDora, timeline         bool
}

func newFlagSet(f *flags) *flag.FlagSet {
	set := flag.NewFlagSet("gh-productivity", flag.ContinueOnError)
	set.SetOutput(io.Discard)
	set.StringVar(&f.repo, "repo", "", "repository to analyze, as owner/repo")
	set.StringVar(&f.repos, "repos", "", "comma separated owner/repo list")
	set.StringVar(&f.org, "all-repos", "", "analyze every non-archived repository of this organization")
	set.StringVar(&f.startDate, "start-date", "", "first day of the period (YYYY-MM-DD)")
	set.StringVar(&f.endDate, "end-date", "", "last day of the period (YYYY-MM-DD)")
	set.StringVar(&f.configFile, "config", "", "YAML configuration file")
	set.StringVar(&f.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	set.StringVar(&f.output, "output", "", "JSON output file (default "+DefaultOutput+")")
	set.StringVar(&f.cacheDir, "cache-dir", "", "record cache directory (default "+cache.DefaultDir+")")
	set.BoolVar(&f.clearCache, "clear-cache", false, "delete the record cache before the run")
	set.IntVar(&f.concurrency, "concurrency", 0, "pull requests hydrated at the same time")
	set.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	set.BoolVar(&f.summary, "summary", false, "print a text summary to stdout")
	set.BoolVar(&f.dev, "dev", false, "human readable logs")
	set.BoolVar(&f.noDora, "no-dora", false, "skip deployments, releases and DORA metrics")
	set.BoolVar(&f.timeline, "timeline", false, "fetch pull request timelines for review counts")
	return set
}

// Usage writes the flag documentation to w.
func Usage(w io.Writer) {
	set := newFlagSet(&flags{})
	set.SetOutput(w)
	fmt.Fprintln(w, "Usage: gh-productivity [flags]")
	set.PrintDefaults()
}

// Load builds the configuration for the given command line arguments.
func Load(args []string) (*Config, error) {
	return load(args, time.Now)
}

func load(args []string, now func() time.Time) (*Config, error) {
	var f flags
	fset := newFlagSet(&f)
	if err := fset.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := godotenv.Load(f.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", f.envFile, err)
	}

	cfg := &Config{
		LogLevel:       DefaultLogLevel,
		Output:         DefaultOutput,
		CacheDir:       cache.DefaultDir,
		Concurrency:    source.DefaultConcurrency,
		PageSize:       source.DefaultPageSize,
		RateLimitFloor: source.DefaultRateLimitFloor,
		TopFiles:       DefaultTopFiles,
		Dora:           true,
	}

	var file File
	if f.configFile != "" {
		var err error
		if file, err = readFile(f.configFile); err != nil {
			return nil, err
		}
		applyFile(cfg, file)
	}

	cfg.Token = os.Getenv("GITHUB_TOKEN")
	cfg.BaseURL = os.Getenv("GITHUB_API_URL")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = strings.ToLower(lvl)
	}

	applyFlags(cfg, f)

	repos := file.Repositories
	if f.repo != "" || f.repos != "" {
		repos = splitList(f.repo + "," + f.repos)
	}
	for _, r := range repos {
		repo, err := domain.ParseRepository(r)
		if err != nil {
			return nil, err
		}
		cfg.Repositories = append(cfg.Repositories, repo)
	}

	startDate, endDate := file.StartDate, file.EndDate
	if f.startDate != "" {
		startDate = f.startDate
	}
	if f.endDate != "" {
		endDate = f.endDate
	}
	if err := cfg.setWindow(startDate, endDate, now()); err != nil {
		return nil, err
	}

	if cfg.Token == "" {
		return nil, ErrMissingToken
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func readFile(path string) (File, error) {
	var file File
	raw, err := os.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return file, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return file, nil
}

func applyFile(cfg *Config, file File) {
	if file.Organization != "" {
		cfg.Org = file.Organization
	}
	if file.Output != "" {
		cfg.Output = file.Output
	}
	if file.CacheDir != "" {
		cfg.CacheDir = file.CacheDir
	}
	if file.Concurrency != 0 {
		cfg.Concurrency = file.Concurrency
	}
	if file.RateLimitFloor != 0 {
		cfg.RateLimitFloor = file.RateLimitFloor
	}
	if len(file.IncidentLabels) > 0 {
		cfg.IncidentLabels = file.IncidentLabels
	}
	if file.TopFiles != nil {
		cfg.TopFiles = *file.TopFiles
	}
	if file.Dora != nil {
		cfg.Dora = *file.Dora
	}
	if file.Timeline != nil {
		cfg.FetchTimeline = *file.Timeline
	}
	cfg.Board = file.Board
	cfg.ProjectV2 = file.ProjectV2
}

func applyFlags(cfg *Config, f flags) {
	if f.org != "" {
		cfg.Org = f.org
	}
	if f.output != "" {
		cfg.Output = f.output
	}
	if f.cacheDir != "" {
		cfg.CacheDir = f.cacheDir
	}
	if f.concurrency != 0 {
		cfg.Concurrency = f.concurrency
	}
	if f.logLevel != "" {
		cfg.LogLevel = strings.ToLower(f.logLevel)
	}
	cfg.ClearCache = f.clearCache
	cfg.Summary = f.summary
	cfg.Development = f.dev
	if f.noDora {
		cfg.Dora = false
	}
	if f.timeline {
		cfg.FetchTimeline = true
	}
}

// setWindow turns the date bounds into a UTC window from the start of the
// first day to the end of the last. Missing bounds default to the
// DefaultWindowDays days ending today.
func (c *Config) setWindow(startDate, endDate string, now time.Time) error {
	today := now.UTC().Truncate(24 * time.Hour)

	end := today
	if endDate != "" {
		var err error
		if end, err = time.Parse(time.DateOnly, endDate); err != nil {
			return fmt.Errorf("invalid end date %q: %w", endDate, err)
		}
	}
	start := end.AddDate(0, 0, -(DefaultWindowDays - 1))
	if startDate != "" {
		var err error
		if start, err = time.Parse(time.DateOnly, startDate); err != nil {
			return fmt.Errorf("invalid start date %q: %w", startDate, err)
		}
	}

	c.Start = start
	c.End = end.Add(24*time.Hour - time.Millisecond)
	return nil
}

// Window is the analysis window.
func (c *Config) Window() domain.Window {
	return domain.Window{Start: c.Start, End: c.End}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

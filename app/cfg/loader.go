package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Sources and state
	FeedsFile    string `long:"feeds-file" env:"FEEDS_FILE" default:"./feeds.yml" description:"Ordered list of feeds to ingest"`
	StateBackend string `long:"state-backend" env:"STATE_BACKEND" default:"file" choice:"file" choice:"sqlite" choice:"redis" description:"Where watermarks are kept"`
	StatePath    string `long:"state-path" env:"STATE_PATH" description:"Watermark file or sqlite database path (default watermarks.json or watermarks.db)"`
	RedisAddr    string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the redis state backend"`
	RedisKey     string `long:"redis-key" env:"REDIS_KEY" default:"rss-digest:watermarks" description:"Redis hash holding the watermarks"`

	// Ingestion
	PerFeedCap int    `long:"per-feed-cap" env:"PER_FEED_CAP" default:"5" description:"Maximum entries contributed by one feed per run"`
	Timeout    int    `long:"timeout" env:"TIMEOUT" default:"30" description:"Timeout in seconds for each feed and page fetch"`
	UserAgent  string `long:"user-agent" env:"USER_AGENT" default:"RSS Digest/1.0" description:"User agent string for HTTP requests"`
	EnvFile    string `long:"env-file" env:"ENV_FILE" default:".env" description:"dotenv file with feed secrets"`

	// Document and delivery
	Format      string `long:"format" env:"FORMAT" default:"epub" choice:"epub" choice:"markdown" choice:"rss" description:"Document format"`
	OutputDir   string `long:"output-dir" env:"OUTPUT_DIR" default:"./out" description:"Directory the document is written to before delivery"`
	KeepOutput  bool   `long:"keep-output" env:"KEEP_OUTPUT" description:"Keep documents in the output directory after delivery"`
	Author      string `long:"author" env:"AUTHOR" default:"rss-digest" description:"Author recorded in the document"`
	TitleSuffix string `long:"title-suffix" env:"TITLE_SUFFIX" default:"RSS Feeds" description:"Text after the date in the document title"`
	Timezone    string `long:"timezone" env:"TZ" default:"America/Los_Angeles" description:"Timezone used for the document date"`
	Sink        string `long:"sink" env:"SINK" default:"dir" choice:"dir" choice:"s3" description:"Delivery destination"`
	SinkDir     string `long:"sink-dir" env:"SINK_DIR" description:"Directory receiving the Feeds folder (dir sink)"`
	S3Bucket    string `long:"s3-bucket" env:"S3_BUCKET" description:"Bucket for the s3 sink"`
	S3Prefix    string `long:"s3-prefix" env:"S3_PREFIX" default:"Feeds" description:"Key prefix for the s3 sink"`
	S3Region    string `long:"s3-region" env:"S3_REGION" description:"AWS region for the s3 sink"`
	S3Profile   string `long:"s3-profile" env:"AWS_PROFILE" description:"Shared AWS config profile for the s3 sink"`
	S3PathStyle bool   `long:"s3-path-style" env:"S3_PATH_STYLE" description:"Use path-style addressing (S3 compatible stores)"`

	// Serve mode
	Serve        bool   `long:"serve" env:"SERVE" description:"Run continuously with the HTTP API and scheduler"`
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	Interval     int    `long:"interval" env:"INTERVAL" default:"86400" description:"Seconds between scheduled runs in serve mode (0 disables)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses the process arguments and environment. It returns nil, nil
// when help was requested.
func Load() (*Cfg, error) {
	return Parse(os.Args[1:])
}

func Parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		FeedsFile:    raw.FeedsFile,
		StateBackend: raw.StateBackend,
		StatePath:    raw.StatePath,
		RedisAddr:    raw.RedisAddr,
		RedisKey:     raw.RedisKey,
		PerFeedCap:   raw.PerFeedCap,
		Timeout:      time.Duration(raw.Timeout) * time.Second,
		UserAgent:    raw.UserAgent,
		EnvFile:      raw.EnvFile,
		Format:       raw.Format,
		OutputDir:    raw.OutputDir,
		KeepOutput:   raw.KeepOutput,
		Author:       raw.Author,
		TitleSuffix:  raw.TitleSuffix,
		Timezone:     raw.Timezone,
		Sink:         raw.Sink,
		SinkDir:      raw.SinkDir,
		S3Bucket:     raw.S3Bucket,
		S3Prefix:     raw.S3Prefix,
		S3Region:     raw.S3Region,
		S3Profile:    raw.S3Profile,
		S3PathStyle:  raw.S3PathStyle,
		Serve:        raw.Serve,
		Port:         raw.Port,
		Interval:     time.Duration(raw.Interval) * time.Second,
		APIAccessKey: raw.APIAccessKey,
		Debug:        raw.Debug,
		Version:      GetVersion(),
	}

	if cfg.StatePath == "" {
		cfg.StatePath = defaultStatePath(cfg.StateBackend)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultStatePath(backend string) string {
	if backend == "sqlite" {
		return "./watermarks.db"
	}
	return "./watermarks.json"
}

// Validate checks combinations the flag parser cannot express.
func (c *Cfg) Validate() error {
	var errs []error

	if !slices.Contains([]string{"file", "sqlite", "redis"}, c.StateBackend) {
		errs = append(errs, fmt.Errorf("unknown state backend '%s'", c.StateBackend))
	}
	if c.StateBackend == "redis" && c.RedisAddr == "" {
		errs = append(errs, fmt.Errorf("--redis-addr is required for the redis state backend"))
	}
	if c.PerFeedCap <= 0 {
		errs = append(errs, fmt.Errorf("--per-feed-cap must be positive, got %d", c.PerFeedCap))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("--timeout must be positive"))
	}
	if c.Sink == "dir" && c.SinkDir == "" {
		errs = append(errs, fmt.Errorf("--sink-dir is required for the dir sink"))
	}
	if c.Sink == "dir" && c.SinkDir != "" && !c.KeepOutput && sameDir(c.OutputDir, filepath.Join(c.SinkDir, "Feeds")) {
		errs = append(errs, fmt.Errorf("--output-dir must differ from the sink's Feeds folder unless --keep-output is set"))
	}
	if c.Sink == "s3" && c.S3Bucket == "" {
		errs = append(errs, fmt.Errorf("--s3-bucket is required for the s3 sink"))
	}
	if c.Interval < 0 {
		errs = append(errs, fmt.Errorf("--interval must not be negative"))
	}

	return errors.Join(errs...)
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

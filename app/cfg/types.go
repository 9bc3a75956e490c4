package cfg

import "time"

type Cfg struct {
	// Sources and state
	FeedsFile    string
	StateBackend string
	StatePath    string
	RedisAddr    string
	RedisKey     string

	// Ingestion
	PerFeedCap int
	Timeout    time.Duration
	UserAgent  string
	EnvFile    string

	// Document and delivery
	Format      string
	OutputDir   string
	KeepOutput  bool
	Author      string
	TitleSuffix string
	Timezone    string
	Location    *time.Location
	Sink        string
	SinkDir     string
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3Profile   string
	S3PathStyle bool

	// Serve mode
	Serve        bool
	Port         string
	Interval     time.Duration
	APIAccessKey string

	Debug   bool
	Version string
}

package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/vitrine/core/kss"
)

// Document store backends
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds the configuration of the service
//
// use POSTGRES="host=localhost port=5432 user=postgres dbname=postgres sslmode=disable"
type Config struct {
	Port      int    `env:"PORT,default=3000" description:"the port the service listens on"`
	PublicURL string `env:"PUBLIC_URL" description:"externally visible base URL, used for image links"`
	LogLevel  string `env:"LOG_LEVEL,default=info" description:"logrus log level"`
	AccessLog bool   `env:"ACCESS_LOG,default=false" description:"log every request in combined log format"`

	Store            string `env:"STORE,default=memory" description:"document store, memory or postgres"`
	Postgres         string `env:"POSTGRES" description:"the connection string for the Postgres DB without password"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" description:"password for the Postgres DB"`
	PostgresSchema   string `env:"POSTGRES_SCHEMA,default=vitrine" description:"the database schema"`

	KSSDriver   string `env:"KSS_DRIVER,default=Local" description:"blob store driver, Local or AWSS3"`
	KSSPath     string `env:"KSS_PATH,default=./data/blobs" description:"base folder of the Local driver"`
	S3Bucket    string `env:"KSS_S3_BUCKET" description:"bucket of the AWSS3 driver"`
	S3Region    string `env:"KSS_S3_REGION,default=us-east-1"`
	S3AccessID  string `env:"KSS_S3_ACCESS_ID"`
	S3AccessKey string `env:"KSS_S3_ACCESS_KEY"`
	S3KeyPrefix string `env:"KSS_S3_KEY_PREFIX"`
	S3Endpoint  string `env:"KSS_S3_ENDPOINT" description:"endpoint of an S3 compatible store"`
	S3PublicURL string `env:"KSS_S3_PUBLIC_URL" description:"public base URL of the bucket, otherwise URLs are pre-signed"`

	SessionSecret string        `env:"SESSION_SECRET,required" description:"HMAC key for session tokens"`
	SessionTTL    time.Duration `env:"SESSION_TTL,default=12h"`
	AdminEmail    string        `env:"ADMIN_EMAIL" description:"the initial admin account"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
	LoginRate     float64       `env:"LOGIN_RATE,default=10" description:"sign-in attempts per minute and client"`
	LoginBurst    int           `env:"LOGIN_BURST,default=5"`

	LoginStateRetention time.Duration `env:"LOGIN_STATE_RETENTION,default=720h" description:"how long failed attempts and last login are kept per email"`

	WhatsAppPhone  string        `env:"WHATSAPP_PHONE" description:"phone number receiving quote requests"`
	RedisURL       string        `env:"REDIS_URL" description:"share the product cache through redis"`
	CacheTTL       time.Duration `env:"CACHE_TTL,default=5m"`
	KafkaBrokers   string        `env:"KAFKA_BROKERS" description:"comma separated brokers for change notifications"`
	KafkaTopic     string        `env:"KAFKA_TOPIC,default=vitrine.products"`
	SQSQueueURL    string        `env:"SQS_QUEUE_URL" description:"queue for change notifications"`
	SQSRegion      string        `env:"SQS_REGION,default=us-east-1"`
	SweepSchedule  string        `env:"SWEEP_SCHEDULE,default=@hourly" description:"cron schedule of the orphaned image sweep"`
	AllowedOrigins string        `env:"ALLOWED_ORIGINS" description:"comma separated CORS origins, default all"`
	SecureCookies  bool          `env:"SECURE_COOKIES,default=false"`
	TrustProxy     bool          `env:"TRUST_PROXY,default=false"`
}

// LoadConfig reads an optional .env file and decodes the environment
func LoadConfig(dotenv ...string) (Config, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("cannot load .env: %w", err)
	}
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.Postgres == "" {
			return fmt.Errorf("STORE=postgres needs POSTGRES")
		}
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	switch kss.DriverType(c.KSSDriver) {
	case kss.DriverTypeLocal:
	case kss.DriverTypeAWSS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("KSS_DRIVER=AWSS3 needs KSS_S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown KSS_DRIVER %q", c.KSSDriver)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD go together")
	}
	return nil
}

func (c Config) origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

package configs

import (
	"slices"
	"time"

	"github.com/opst/yeastregulatorydb/pkg/blob"
	"github.com/opst/yeastregulatorydb/pkg/utils/retry"
)

// Sealed configuration shared by the api server and workers.
type Config struct {
	server   *ServerConfig
	database *DatabaseConfig
	storage  *StorageConfig
	auth     *AuthConfig
	pipeline *PipelineConfig
	worker   *WorkerConfig
}

func (c *Config) Server() *ServerConfig     { return c.server }
func (c *Config) Database() *DatabaseConfig { return c.database }
func (c *Config) Storage() *StorageConfig   { return c.storage }
func (c *Config) Auth() *AuthConfig         { return c.auth }
func (c *Config) Pipeline() *PipelineConfig { return c.pipeline }
func (c *Config) Worker() *WorkerConfig     { return c.worker }

type ServerConfig struct {
	port     int32
	logLevel string
}

// Port is the port the api server listens on.
func (s *ServerConfig) Port() int32 { return s.port }

func (s *ServerConfig) LogLevel() string { return s.logLevel }

type DatabaseConfig struct {
	driver           string
	uri              string
	schemaRepository string
}

// Driver is "postgres" or "memory".
func (d *DatabaseConfig) Driver() string { return d.driver }

// URI is the connection string of postgres. Empty for the memory driver.
func (d *DatabaseConfig) URI() string { return d.uri }

// SchemaRepository is empty when the schema is not watched.
func (d *DatabaseConfig) SchemaRepository() string { return d.schemaRepository }

type StorageConfig struct {
	blob blob.Config
}

func (s *StorageConfig) Blob() blob.Config { return s.blob }

type AuthConfig struct {
	hmacKey []byte
	admins  []string
}

func (a *AuthConfig) HMACKey() []byte { return slices.Clone(a.hmacKey) }

func (a *AuthConfig) Admins() []string { return slices.Clone(a.admins) }

type PipelineConfig struct {
	chrFormat        string
	lockKey          string
	lockTTL          time.Duration
	retryAttempts    int
	initialBackoff   time.Duration
	multiplier       float64
	binSize          int
	significanceBins int
	promoterSig      map[string]string
	nullFileSources  []string
}

// ChrFormat is the ChrMap column in which chromosome names of files are written.
func (p *PipelineConfig) ChrFormat() string { return p.chrFormat }

func (p *PipelineConfig) LockKey() string { return p.lockKey }

func (p *PipelineConfig) LockTTL() time.Duration { return p.lockTTL }

func (p *PipelineConfig) Retry() retry.Policy {
	return retry.Policy{
		Attempts:   p.retryAttempts,
		Initial:    p.initialBackoff,
		Multiplier: p.multiplier,
	}
}

func (p *PipelineConfig) BinSize() int { return p.binSize }

func (p *PipelineConfig) SignificanceBins() int { return p.significanceBins }

// PromoterSig maps DataSource names to the FileFormat name of their promoter significance files.
func (p *PipelineConfig) PromoterSig() map[string]string {
	ret := make(map[string]string, len(p.promoterSig))
	for k, v := range p.promoterSig {
		ret[k] = v
	}
	return ret
}

func (p *PipelineConfig) NullFileDataSources() []string { return slices.Clone(p.nullFileSources) }

type WorkerConfig struct {
	concurrency  int
	pollInterval time.Duration
	lease        time.Duration
	metricsPort  int32
}

func (w *WorkerConfig) Concurrency() int            { return w.concurrency }
func (w *WorkerConfig) PollInterval() time.Duration { return w.pollInterval }
func (w *WorkerConfig) Lease() time.Duration        { return w.lease }
func (w *WorkerConfig) MetricsPort() int32          { return w.metricsPort }

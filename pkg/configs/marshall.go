package configs

import (
	"fmt"
	"time"

	"github.com/opst/yeastregulatorydb/pkg/blob"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

// Configuration of servers and workers.
//
// This type is marshalling value and mutable.
// Consider to use immutable version, `Config`, given by `TrySeal`.
type ConfigMarshall struct {
	Server   *ServerConfigMarshall   `yaml:"server"`
	Database *DatabaseConfigMarshall `yaml:"database"`
	Storage  *StorageConfigMarshall  `yaml:"storage"`
	Auth     *AuthConfigMarshall     `yaml:"auth"`
	Pipeline *PipelineConfigMarshall `yaml:"pipeline"`
	Worker   *WorkerConfigMarshall   `yaml:"worker"`
}

var _ Marshalled[*Config] = &ConfigMarshall{}

func (c *ConfigMarshall) trySeal(path string) *Config {
	return &Config{
		server:   orZero(c.Server).trySeal(path + ".server"),
		database: nonnil(c.Database, path+".database").trySeal(path + ".database"),
		storage:  nonnil(c.Storage, path+".storage").trySeal(path + ".storage"),
		auth:     orZero(c.Auth).trySeal(path + ".auth"),
		pipeline: orZero(c.Pipeline).trySeal(path + ".pipeline"),
		worker:   orZero(c.Worker).trySeal(path + ".worker"),
	}
}

type ServerConfigMarshall struct {
	Port     int32  `yaml:"port"`
	LogLevel string `yaml:"loglevel"`
}

func (s *ServerConfigMarshall) trySeal(path string) *ServerConfig {
	port := s.Port
	if port == 0 {
		port = 8080
	}
	level := s.LogLevel
	switch level {
	case "":
		level = "info"
	case "debug", "info", "warn", "error", "off":
	default:
		panic(fmt.Sprintf("%s.loglevel should be one of debug, info, warn, error or off: %q", path, level))
	}
	return &ServerConfig{port: port, logLevel: level}
}

type DatabaseConfigMarshall struct {
	// Driver is "postgres" (default) or "memory".
	Driver string `yaml:"driver"`
	URI    string `yaml:"uri"`

	// SchemaRepository is the directory of versioned schema files.
	// When given, servers stop if the database falls behind it.
	SchemaRepository string `yaml:"schemaRepository"`
}

func (d *DatabaseConfigMarshall) trySeal(path string) *DatabaseConfig {
	switch d.Driver {
	case "", "postgres":
		return &DatabaseConfig{
			driver:           "postgres",
			uri:              required(d.URI, path+".uri"),
			schemaRepository: d.SchemaRepository,
		}
	case "memory":
		return &DatabaseConfig{driver: "memory"}
	}
	panic(fmt.Sprintf("%s.driver should be postgres or memory: %q", path, d.Driver))
}

type StorageConfigMarshall struct {
	Driver string                   `yaml:"driver"`
	FS     *FSStorageConfigMarshall `yaml:"fs"`
	S3     *S3StorageConfigMarshall `yaml:"s3"`
}

type FSStorageConfigMarshall struct {
	Root string `yaml:"root"`
}

type S3StorageConfigMarshall struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	PathStyle       bool   `yaml:"pathStyle"`
}

func (s *StorageConfigMarshall) trySeal(path string) *StorageConfig {
	driver := blob.Driver(s.Driver)
	if driver == "" {
		driver = blob.DriverFilesystem
	}
	conf := blob.Config{Driver: driver}
	switch driver {
	case blob.DriverFilesystem:
		fs := nonnil(s.FS, path+".fs")
		conf.FSRoot = required(fs.Root, path+".fs.root")
	case blob.DriverS3:
		s3 := nonnil(s.S3, path+".s3")
		conf.S3.Bucket = required(s3.Bucket, path+".s3.bucket")
		conf.S3.Region = s3.Region
		conf.S3.Endpoint = s3.Endpoint
		conf.S3.AccessKeyID = s3.AccessKeyID
		conf.S3.SecretAccessKey = s3.SecretAccessKey
		conf.S3.PathStyle = s3.PathStyle
	case blob.DriverMemory:
	default:
		panic(fmt.Sprintf("%s.driver should be one of fs, s3 or memory: %q", path, s.Driver))
	}
	return &StorageConfig{blob: conf}
}

type AuthConfigMarshall struct {
	// HMACKey signs and verifies bearer tokens.
	HMACKey string `yaml:"hmacKey"`

	// Admins are users allowed to register reference data and to drive stages.
	Admins []string `yaml:"admins"`
}

func (a *AuthConfigMarshall) trySeal(path string) *AuthConfig {
	return &AuthConfig{
		hmacKey: []byte(required(a.HMACKey, path+".hmacKey")),
		admins:  append([]string{}, a.Admins...),
	}
}

type PipelineConfigMarshall struct {
	ChrFormat           string                      `yaml:"chrFormat"`
	Lock                *LockConfigMarshall         `yaml:"lock"`
	Retry               *RetryConfigMarshall        `yaml:"retry"`
	RankResponse        *RankResponseConfigMarshall `yaml:"rankResponse"`
	PromoterSig         map[string]string           `yaml:"promoterSig"`
	NullFileDataSources []string                    `yaml:"nullFileDataSources"`
}

type LockConfigMarshall struct {
	Key string        `yaml:"key"`
	TTL time.Duration `yaml:"ttl"`
}

type RetryConfigMarshall struct {
	Attempts       *int          `yaml:"attempts"`
	InitialBackoff time.Duration `yaml:"initialBackoff"`
	Multiplier     float64       `yaml:"multiplier"`
}

type RankResponseConfigMarshall struct {
	BinSize          int `yaml:"binSize"`
	SignificanceBins int `yaml:"significanceBins"`
}

func (p *PipelineConfigMarshall) trySeal(path string) *PipelineConfig {
	lock := orZero(p.Lock)
	retry := orZero(p.Retry)
	rr := orZero(p.RankResponse)

	attempts := 3
	if retry.Attempts != nil {
		attempts = *retry.Attempts
		if attempts < 0 {
			panic(path + ".retry.attempts should not be negative")
		}
	}
	promoterSig := p.PromoterSig
	if promoterSig == nil {
		promoterSig = map[string]string{
			"chipexo_pugh_allevents": "chipexo_promoter_sig",
			"callingcards":           "callingcards_promoter_sig",
		}
	}
	nullFile := p.NullFileDataSources
	if nullFile == nil {
		nullFile = []string{"harbison"}
	}

	return &PipelineConfig{
		chrFormat:        orDefault(p.ChrFormat, "ucsc"),
		lockKey:          orDefault(lock.Key, "add_data_lock"),
		lockTTL:          positive(lock.TTL, time.Hour, path+".lock.ttl"),
		retryAttempts:    attempts,
		initialBackoff:   positive(retry.InitialBackoff, 15*time.Second, path+".retry.initialBackoff"),
		multiplier:       positive(retry.Multiplier, 2, path+".retry.multiplier"),
		binSize:          positive(rr.BinSize, 5, path+".rankResponse.binSize"),
		significanceBins: positive(rr.SignificanceBins, 50, path+".rankResponse.significanceBins"),
		promoterSig:      promoterSig,
		nullFileSources:  nullFile,
	}
}

type WorkerConfigMarshall struct {
	Concurrency  int           `yaml:"concurrency"`
	PollInterval time.Duration `yaml:"pollInterval"`
	Lease        time.Duration `yaml:"lease"`
	MetricsPort  int32         `yaml:"metricsPort"`
}

func (w *WorkerConfigMarshall) trySeal(path string) *WorkerConfig {
	return &WorkerConfig{
		concurrency:  positive(w.Concurrency, 2, path+".concurrency"),
		pollInterval: positive(w.PollInterval, 2*time.Second, path+".pollInterval"),
		lease:        positive(w.Lease, 30*time.Minute, path+".lease"),
		metricsPort:  positive(w.MetricsPort, 9090, path+".metricsPort"),
	}
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func orZero[T any](v *T) *T {
	if v == nil {
		return new(T)
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}

func orDefault[T comparable](v T, def T) T {
	if v == *new(T) {
		return def
	}
	return v
}

// positive is v, or def when v is zero. Negative v is a misconfiguration.
func positive[T int | int32 | float64 | time.Duration](v T, def T, path string) T {
	if v < 0 {
		panic(fmt.Sprintf("%s should be positive: %v", path, v))
	}
	if v == 0 {
		return def
	}
	return v
}

package configs

import (
	"fmt"
	"os"

	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// EnvDatabaseURI overrides database.uri.
	EnvDatabaseURI = "YRDB_DATABASE_URI"

	// EnvAuthHMACKey overrides auth.hmacKey.
	EnvAuthHMACKey = "YRDB_AUTH_HMAC_KEY"
)

// LoadConfig reads the yaml file at filepath and seals it.
//
// Environment variables YRDB_DATABASE_URI and YRDB_AUTH_HMAC_KEY take precedence over the file.
func LoadConfig(filepath string) (*Config, error) {
	buf, err := os.ReadFile(filepath)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return Unmarshal(buf, os.Getenv)
}

// Unmarshal parses yaml, applies environment overrides read by getenv, and seals the result.
//
// Misconfigurations are returned as errors wrapping ErrValidation.
func Unmarshal(buf []byte, getenv func(string) string) (conf *Config, err error) {
	m := ConfigMarshall{}
	if err := yaml.Unmarshal(buf, &m); err != nil {
		return nil, xe.WrapWithNote("config is broken", err)
	}
	if getenv != nil {
		if uri := getenv(EnvDatabaseURI); uri != "" {
			if m.Database == nil {
				m.Database = &DatabaseConfigMarshall{}
			}
			m.Database.URI = uri
		}
		if key := getenv(EnvAuthHMACKey); key != "" {
			if m.Auth == nil {
				m.Auth = &AuthConfigMarshall{}
			}
			m.Auth.HMACKey = key
		}
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		conf = nil
		err = xe.Invalid("config", "%s", fmt.Sprint(r))
	}()
	return TrySeal[*Config](&m), nil
}

/*******************************************************************************
* Copyright (C) 2026 the Eclipse BaSyx Authors and Fraunhofer IESE
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

// nolint:all
package common

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
)

// Config is the complete configuration of the fetch/sync tooling. The CLI and
// the mirror service translate it into explicit option structs; nothing below
// cmd/ reads it globally.
type Config struct {
	Server     ServerConfig   `mapstructure:"server" json:"server"`
	Source     SourceConfig   `mapstructure:"source" json:"source"`
	Fetch      FetchConfig    `mapstructure:"fetch" json:"fetch"`
	Auth       AuthConfig     `mapstructure:"auth" json:"auth"`
	Postgres   PostgresConfig `mapstructure:"postgres" json:"postgres"`
	CorsConfig CorsConfig     `mapstructure:"cors" json:"cors"`
}

// ServerConfig contains the mirror service HTTP settings.
type ServerConfig struct {
	Port        int    `mapstructure:"port" json:"port"`
	ContextPath string `mapstructure:"contextPath" json:"contextPath"`
}

// SourceConfig describes where entities are loaded from.
type SourceConfig struct {
	Location string `mapstructure:"location" json:"location"` // start URI of the fetch
	BaseType string `mapstructure:"baseType" json:"baseType"` // repository | registry | registryOfRegistries
	BaseURIs string `mapstructure:"baseUris" json:"baseUris"` // plain URL or {{ "KEY":"value" }} template
}

// FetchConfig holds the knobs of the fetch orchestrator and the sync engine.
type FetchConfig struct {
	ParallelReads        int           `mapstructure:"parallelReads" json:"parallelReads"`
	ParallelWrites       int           `mapstructure:"parallelWrites" json:"parallelWrites"`
	PageLimit            int           `mapstructure:"pageLimit" json:"pageLimit"`
	EncryptIDs           bool          `mapstructure:"encryptIds" json:"encryptIds"`
	RequestTimeout       time.Duration `mapstructure:"requestTimeout" json:"requestTimeout"`
	ReadTimeout          time.Duration `mapstructure:"readTimeout" json:"readTimeout"`
	RequestsPerSecond    float64       `mapstructure:"requestsPerSecond" json:"requestsPerSecond"`
	AutoLoadSubmodels    bool          `mapstructure:"autoLoadSubmodels" json:"autoLoadSubmodels"`
	AutoLoadCDs          bool          `mapstructure:"autoLoadConceptDescriptions" json:"autoLoadConceptDescriptions"`
	AutoLoadThumbnails   bool          `mapstructure:"autoLoadThumbnails" json:"autoLoadThumbnails"`
	AutoLoadOnDemand     bool          `mapstructure:"autoLoadOnDemand" json:"autoLoadOnDemand"`
	HealAasListViaLookup bool          `mapstructure:"healAasListViaLookup" json:"healAasListViaLookup"`
}

// AuthConfig lists static bearer tokens keyed by base address.
type AuthConfig struct {
	Tokens map[string]string `mapstructure:"tokens" json:"tokens"`
}

// PostgresConfig contains the snapshot store connection parameters.
type PostgresConfig struct {
	Enabled                bool   `mapstructure:"enabled" json:"enabled"`
	Host                   string `mapstructure:"host" json:"host"`
	Port                   int    `mapstructure:"port" json:"port"`
	User                   string `mapstructure:"user" json:"user"`
	Password               string `mapstructure:"password" json:"password"`
	DBName                 string `mapstructure:"dbname" json:"dbname"`
	MaxOpenConnections     int    `mapstructure:"maxOpenConnections" json:"maxOpenConnections"`
	MaxIdleConnections     int    `mapstructure:"maxIdleConnections" json:"maxIdleConnections"`
	ConnMaxLifetimeMinutes int    `mapstructure:"connMaxLifetimeMinutes" json:"connMaxLifetimeMinutes"`
}

// DSN returns the lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DBName)
}

// CorsConfig contains the mirror service CORS policy.
type CorsConfig struct {
	AllowedOrigins   []string `mapstructure:"allowedOrigins" json:"allowedOrigins"`
	AllowedMethods   []string `mapstructure:"allowedMethods" json:"allowedMethods"`
	AllowedHeaders   []string `mapstructure:"allowedHeaders" json:"allowedHeaders"`
	AllowCredentials bool     `mapstructure:"allowCredentials" json:"allowCredentials"`
}

// LoadConfig loads the configuration from a YAML file and environment variables.
//
// Precedence: environment variables, then the configuration file (if any),
// then defaults. Environment variables use underscores, e.g. FETCH_PARALLELREADS
// for fetch.parallelReads.
//
//	config, err := LoadConfig("config/aasfetch.yaml")
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		log.Printf("📁 Loading config from file: %s", configPath)
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		log.Println("📁 No config file provided — loading from environment variables only")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	log.Println("✅ Configuration loaded successfully")
	PrintConfiguration(cfg)
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5080)
	v.SetDefault("server.contextPath", "")

	v.SetDefault("source.location", "")
	v.SetDefault("source.baseType", "repository")
	v.SetDefault("source.baseUris", "")

	v.SetDefault("fetch.parallelReads", 4)
	v.SetDefault("fetch.parallelWrites", 4)
	v.SetDefault("fetch.pageLimit", 0)
	v.SetDefault("fetch.encryptIds", true)
	v.SetDefault("fetch.requestTimeout", 60*time.Second)
	v.SetDefault("fetch.readTimeout", 30*time.Second)
	v.SetDefault("fetch.requestsPerSecond", 0)
	v.SetDefault("fetch.autoLoadSubmodels", true)
	v.SetDefault("fetch.autoLoadConceptDescriptions", false)
	v.SetDefault("fetch.autoLoadThumbnails", false)
	v.SetDefault("fetch.autoLoadOnDemand", true)
	v.SetDefault("fetch.healAasListViaLookup", true)

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "db")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "admin")
	v.SetDefault("postgres.password", "admin123")
	v.SetDefault("postgres.dbname", "basyxFetchDB")
	v.SetDefault("postgres.maxOpenConnections", 10)
	v.SetDefault("postgres.maxIdleConnections", 10)
	v.SetDefault("postgres.connMaxLifetimeMinutes", 5)

	v.SetDefault("cors.allowedOrigins", []string{"*"})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"*"})
	v.SetDefault("cors.allowCredentials", true)
}

// PrintConfiguration logs the configuration as JSON with credentials and
// bearer tokens redacted.
func PrintConfiguration(cfg *Config) {
	cfgCopy := *cfg

	if cfg.Postgres.Host != "" {
		cfgCopy.Postgres.Host = "****"
		cfgCopy.Postgres.User = "****"
		cfgCopy.Postgres.Password = "****"
	}
	if len(cfg.Auth.Tokens) > 0 {
		redacted := make(map[string]string, len(cfg.Auth.Tokens))
		for base := range cfg.Auth.Tokens {
			redacted[base] = "****"
		}
		cfgCopy.Auth.Tokens = redacted
	}

	configJSON, err := jsonAPI.MarshalIndent(cfgCopy, "", "  ")
	if err != nil {
		log.Printf("Unable to marshal configuration to JSON: %v", err)
		return
	}

	log.Printf("📜 Loaded configuration:\n%s", string(configJSON))
}

// AddCors configures the CORS middleware of the mirror service router.
func AddCors(r *chi.Mux, config *Config) {
	c := cors.New(cors.Options{
		AllowedOrigins:   config.CorsConfig.AllowedOrigins,
		AllowedMethods:   config.CorsConfig.AllowedMethods,
		AllowedHeaders:   config.CorsConfig.AllowedHeaders,
		AllowCredentials: config.CorsConfig.AllowCredentials,
	})
	r.Use(c.Handler)
}

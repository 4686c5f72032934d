// Package config builds the single immutable configuration value the rest
// of the process receives through constructors. Nothing outside this
// package reads environment state.
package config

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr string

	// Issuer is the value written into access-token iss claims.
	Issuer       string
	SigningKey   *rsa.PrivateKey
	SigningKeyID string

	AccessTokenLifetime time.Duration
	PARLifetime         time.Duration
	AuthCodeLifetime    time.Duration
	ProfileCacheTTL     time.Duration

	// MinStateEntropyBits is the floor applied to the state parameter on
	// pushed requests.
	MinStateEntropyBits float64

	// LoginPageURL and ConsentPageURL are the external surfaces users are
	// redirected to during the flow.
	LoginPageURL   string
	ConsentPageURL string

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	IDPBaseURL string
	IDPAPIKey  string
	IDPTimeout time.Duration
}

// Load reads the environment once and returns the assembled configuration.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("ACCESS_TOKEN_LIFETIME", 4*time.Hour)
	v.SetDefault("PAR_LIFETIME", 60*time.Second)
	v.SetDefault("AUTH_CODE_LIFETIME", 2*time.Minute)
	v.SetDefault("PROFILE_CACHE_TTL", 5*time.Minute)
	v.SetDefault("MIN_STATE_ENTROPY_BITS", 64.0)
	v.SetDefault("LOGIN_PAGE_URL", "http://localhost:3001/")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "authserver")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("IDP_TIMEOUT", 10*time.Second)
	v.SetDefault("JWT_KEY_ID", "authserver")

	cfg := Config{
		ListenAddr:          v.GetString("LISTEN_ADDR"),
		Issuer:              v.GetString("JWT_ISSUER"),
		SigningKeyID:        v.GetString("JWT_KEY_ID"),
		AccessTokenLifetime: v.GetDuration("ACCESS_TOKEN_LIFETIME"),
		PARLifetime:         v.GetDuration("PAR_LIFETIME"),
		AuthCodeLifetime:    v.GetDuration("AUTH_CODE_LIFETIME"),
		ProfileCacheTTL:     v.GetDuration("PROFILE_CACHE_TTL"),
		MinStateEntropyBits: v.GetFloat64("MIN_STATE_ENTROPY_BITS"),
		LoginPageURL:        v.GetString("LOGIN_PAGE_URL"),
		ConsentPageURL:      v.GetString("CONSENT_PAGE_URL"),
		MongoURI:            v.GetString("MONGO_URI"),
		MongoDatabase:       v.GetString("MONGO_DATABASE"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		RedisDB:             v.GetInt("REDIS_DB"),
		IDPBaseURL:          v.GetString("IDP_URL"),
		IDPAPIKey:           v.GetString("IDP_API_KEY"),
		IDPTimeout:          v.GetDuration("IDP_TIMEOUT"),
	}

	if cfg.Issuer == "" {
		return Config{}, errors.New("JWT_ISSUER is required")
	}
	if cfg.IDPBaseURL == "" {
		return Config{}, errors.New("IDP_URL is required")
	}

	key, err := parseRSAPrivateKey(v.GetString("JWT_PRIVATE_KEY"))
	if err != nil {
		return Config{}, fmt.Errorf("parsing JWT_PRIVATE_KEY: %w", err)
	}
	cfg.SigningKey = key

	return cfg, nil
}

// parseRSAPrivateKey accepts a PEM-encoded key, tolerating literal "\n"
// sequences the way keys usually arrive through environment variables.
func parseRSAPrivateKey(raw string) (*rsa.PrivateKey, error) {
	if raw == "" {
		return nil, errors.New("empty key")
	}

	block, _ := pem.Decode([]byte(strings.ReplaceAll(raw, `\n`, "\n")))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("not an RSA private key")
	}

	return key, nil
}

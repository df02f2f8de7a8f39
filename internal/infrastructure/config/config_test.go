package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func baseEnv() map[string]string {
	return map[string]string{
		"JWT_ACCESS_SECRET":  "access",
		"JWT_REFRESH_SECRET": "refresh",
	}
}

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(baseEnv()))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected http defaults: %+v", cfg)
	}
	if cfg.JWT.AccessTTL != 15*time.Minute || cfg.JWT.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("unexpected token lifetimes: %+v", cfg.JWT)
	}
	if cfg.Security.LoginMaxAttempts != 5 || cfg.Security.LoginWindow != 15*time.Minute {
		t.Fatalf("unexpected security defaults: %+v", cfg.Security)
	}
	if cfg.Mongo.Database != "identity" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected store defaults: %+v %+v", cfg.Mongo, cfg.Redis)
	}
	if cfg.Notify.Transport != "log" || cfg.Notify.Workers != 4 {
		t.Fatalf("unexpected notify defaults: %+v", cfg.Notify)
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	env := baseEnv()
	env["JWT_ACCESS_TTL"] = "5m"
	env["NOTIFY_TRANSPORT"] = "amqp"
	env["BCRYPT_COST"] = "12"

	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(env))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWT.AccessTTL != 5*time.Minute || cfg.Notify.Transport != "amqp" || cfg.Security.BcryptCost != 12 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadWith_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secrets": {},
		"shared secret":   {"JWT_ACCESS_SECRET": "same", "JWT_REFRESH_SECRET": "same"},
		"ttl inversion":   {"JWT_ACCESS_SECRET": "a", "JWT_REFRESH_SECRET": "b", "JWT_ACCESS_TTL": "200h"},
		"bad transport":   {"JWT_ACCESS_SECRET": "a", "JWT_REFRESH_SECRET": "b", "NOTIFY_TRANSPORT": "smtp"},
	}
	for name, env := range cases {
		if _, err := LoadWith(context.Background(), envconfig.MapLookuper(env)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

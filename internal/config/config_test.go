package config

import (
	"testing"
)

func TestParseRateLimits(t *testing.T) {
	limits := parseRateLimits("facebook:page=10, facebook:user=3,ebay:api=1")
	if len(limits) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(limits))
	}
	if limits["facebook:page"] != 10 {
		t.Errorf("expected facebook:page=10, got %d", limits["facebook:page"])
	}
	if limits["facebook:user"] != 3 {
		t.Errorf("expected facebook:user=3, got %d", limits["facebook:user"])
	}
	if limits["ebay:api"] != 1 {
		t.Errorf("expected ebay:api=1, got %d", limits["ebay:api"])
	}
}

func TestParseRateLimitsSkipsMalformed(t *testing.T) {
	limits := parseRateLimits("facebook:page=10,broken,no-equals,x:y=-5,z:w=abc")
	if len(limits) != 1 {
		t.Fatalf("malformed entries must be skipped, got %v", limits)
	}
	if limits["facebook:page"] != 10 {
		t.Errorf("valid entry must survive, got %d", limits["facebook:page"])
	}
}

func TestParseRateLimitsEmpty(t *testing.T) {
	if limits := parseRateLimits(""); len(limits) != 0 {
		t.Errorf("empty input must yield no limits, got %v", limits)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Error("missing JWT_SECRET must fail")
	}
}

func TestLoadValidatesTimezone(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DEFAULT_TIMEZONE", "Not/AZone")
	if _, err := Load(); err == nil {
		t.Error("invalid DEFAULT_TIMEZONE must fail")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DEFAULT_TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Auction.CloseGraceSeconds != 10 {
		t.Errorf("expected grace default 10, got %d", cfg.Auction.CloseGraceSeconds)
	}
	if cfg.Auction.AntiSniperDefaultMinutes != 5 {
		t.Errorf("expected anti-sniper default 5, got %d", cfg.Auction.AntiSniperDefaultMinutes)
	}
	if cfg.Auction.RateLimitDefault != 1 {
		t.Errorf("expected rate limit default 1, got %d", cfg.Auction.RateLimitDefault)
	}
}

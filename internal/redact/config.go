package redact

import (
	"fmt"
	"strings"
)

// Config tunes the built-in rule set. Boundaries are heuristics and are
// expected to change with the traffic the platform sees.
type Config struct {
	MinPhoneDigits  int          `mapstructure:"min_phone_digits"`
	MaxPhoneDigits  int          `mapstructure:"max_phone_digits"`
	TriggerKeywords []string     `mapstructure:"trigger_keywords"`
	MessagingApps   []string     `mapstructure:"messaging_apps"`
	TopLevelDomains []string     `mapstructure:"top_level_domains"`
	MaxPasses       int          `mapstructure:"max_passes"`
	CustomRules     []CustomRule `mapstructure:"custom_rules"`
}

// DefaultConfig returns the rule tuning used in production.
func DefaultConfig() Config {
	return Config{
		MinPhoneDigits: 7,
		MaxPhoneDigits: 15,
		TriggerKeywords: []string{
			"call me", "text me", "ring me", "phone", "mobile", "mobil", "mobilom",
			"tel", "telefon", "telefonszám", "telefonszámom", "hívj", "hívjál", "hívjon",
			"szám", "számom", "elérhetőség",
		},
		MessagingApps: []string{
			"whatsapp", "telegram", "viber", "line", "signal", "skype",
			"instagram", "insta", "facebook", "messenger", "snapchat", "discord", "tiktok",
		},
		TopLevelDomains: []string{
			"com", "net", "org", "edu", "gov", "info", "biz", "io", "co", "me", "app", "dev",
			"eu", "hu", "de", "at", "uk", "ro", "sk", "cz", "pl", "ch", "fr", "es", "nl",
			"us", "ca", "au", "ly", "gl", "to", "tv", "xyz", "online", "site", "shop",
		},
		MaxPasses: 8,
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinPhoneDigits == 0 {
		c.MinPhoneDigits = d.MinPhoneDigits
	}
	if c.MaxPhoneDigits == 0 {
		c.MaxPhoneDigits = d.MaxPhoneDigits
	}
	if len(c.TriggerKeywords) == 0 {
		c.TriggerKeywords = d.TriggerKeywords
	}
	if len(c.MessagingApps) == 0 {
		c.MessagingApps = d.MessagingApps
	}
	if len(c.TopLevelDomains) == 0 {
		c.TopLevelDomains = d.TopLevelDomains
	}
	if c.MaxPasses == 0 {
		c.MaxPasses = d.MaxPasses
	}
	return c
}

// Validate checks the tuning for values the rules cannot work with.
func (c Config) Validate() error {
	if c.MinPhoneDigits < 3 {
		return fmt.Errorf("min_phone_digits must be at least 3, got %d", c.MinPhoneDigits)
	}
	if c.MaxPhoneDigits < c.MinPhoneDigits {
		return fmt.Errorf("max_phone_digits (%d) must be >= min_phone_digits (%d)", c.MaxPhoneDigits, c.MinPhoneDigits)
	}
	if c.MaxPasses < 1 {
		return fmt.Errorf("max_passes must be positive, got %d", c.MaxPasses)
	}
	for name, words := range map[string][]string{
		"trigger_keywords":  c.TriggerKeywords,
		"messaging_apps":    c.MessagingApps,
		"top_level_domains": c.TopLevelDomains,
	} {
		for i, w := range words {
			if strings.TrimSpace(w) == "" {
				return fmt.Errorf("%s[%d] cannot be empty", name, i)
			}
		}
	}
	for i, r := range c.CustomRules {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("custom_rules[%d]: name is required", i)
		}
		if strings.TrimSpace(r.Pattern) == "" {
			return fmt.Errorf("custom_rules[%d]: pattern is required for rule %s", i, r.Name)
		}
		if _, ok := placeholders[r.Category]; !ok {
			return fmt.Errorf("custom_rules[%d]: unknown category %q for rule %s", i, r.Category, r.Name)
		}
	}
	return nil
}

// CustomRule is an extra pattern loaded from configuration. The whole match
// is masked unless the pattern has a capture group, in which case only the
// first group is.
type CustomRule struct {
	Name      string   `mapstructure:"name"`
	Category  Category `mapstructure:"category"`
	Pattern   string   `mapstructure:"pattern"`
	Heuristic bool     `mapstructure:"heuristic"`
}

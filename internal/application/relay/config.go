package relay

import (
	"fmt"
	"net/url"
	"time"
)

const (
	DefaultURL           = "https://formsubmit.co/ccidcop@gmail.com"
	DefaultSubjectPrefix = "NETWORTHWARS Internship Application"
	DefaultTemplate      = "table"
)

type Config struct {
	URL            string        `mapstructure:"url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	Template       string        `mapstructure:"template"`
	DisableCaptcha bool          `mapstructure:"disable_captcha"`
}

func DefaultConfig() *Config {
	return &Config{
		URL:            DefaultURL,
		Timeout:        30 * time.Second,
		SubjectPrefix:  DefaultSubjectPrefix,
		Template:       DefaultTemplate,
		DisableCaptcha: true,
	}
}

func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("relay url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("relay url must be an absolute http(s) url")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.SubjectPrefix == "" {
		return fmt.Errorf("subject_prefix is required")
	}
	if c.Template == "" {
		return fmt.Errorf("template is required")
	}
	return nil
}

// Metadata returns the relay instructions derived from the config.
func (c *Config) Metadata() Metadata {
	return Metadata{
		SubjectPrefix:  c.SubjectPrefix,
		Template:       c.Template,
		DisableCaptcha: c.DisableCaptcha,
	}
}

/*
Package config assembles runtime configuration from defaults, an optional
YAML file and environment overrides. Environment always wins, matching how
the monitor is deployed (cron job with env-injected secrets).
*/
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "PIXMON_CONFIG"
	forceResetEnv = "PIXMON_FORCE_RESET"
	statePathEnv  = "PIXMON_STATE_FILE"
	channelEnv    = "PIXMON_CHANNEL"

	geminiAPIKeyEnv = "GEMINI_API_KEY"
	geminiModelEnv  = "GEMINI_MODEL"

	twilioAccountSIDEnv   = "TWILIO_ACCOUNT_SID"
	twilioAuthTokenEnv    = "TWILIO_AUTH_TOKEN"
	twilioWhatsAppFromEnv = "TWILIO_WHATSAPP_FROM"
	whatsAppToEnv         = "WHATSAPP_TO"

	smtpServerEnv = "SMTP_SERVER"
	smtpUserEnv   = "SMTP_USER"
	smtpPassEnv   = "SMTP_PASS"
	smtpToEnv     = "SMTP_TO"
)

// Delivery channels. One channel per run, one fixed recipient.
const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
)

// Config holds everything the monitor needs for one run.
type Config struct {
	StatePath string `yaml:"statePath"`

	// ForceReset runs the monitor in dry-run mode: persisted state is
	// neither read nor written and a fixed fallback item replaces the
	// live fetch. Used for connectivity testing.
	ForceReset bool `yaml:"-"`

	Source  SourceConfig `yaml:"source"`
	Gemini  GeminiConfig `yaml:"gemini"`
	Channel string       `yaml:"channel"`
	Twilio  TwilioConfig `yaml:"twilio"`
	SMTP    SMTPConfig   `yaml:"smtp"`
}

// SourceConfig points at the BCB normativo portal.
type SourceConfig struct {
	SearchURL     string `yaml:"searchUrl"`
	DetailBaseURL string `yaml:"detailBaseUrl"`
}

// GeminiConfig defines how to contact the text-generation API.
type GeminiConfig struct {
	APIKey          string `yaml:"apiKey"`
	Model           string `yaml:"model"`
	MaxOutputTokens int32  `yaml:"maxOutputTokens"`
}

// TwilioConfig wires the WhatsApp delivery channel.
type TwilioConfig struct {
	AccountSID string `yaml:"accountSid"`
	AuthToken  string `yaml:"authToken"`
	From       string `yaml:"from"`
	To         string `yaml:"to"`
}

// SMTPConfig wires the email delivery channel.
type SMTPConfig struct {
	Server string `yaml:"server"`
	Port   int    `yaml:"port"`
	User   string `yaml:"user"`
	Pass   string `yaml:"pass"`
	From   string `yaml:"from"`
	To     string `yaml:"to"`
}

// Load reads YAML configuration (if PIXMON_CONFIG is set) on top of defaults
// and applies environment overrides. Call Validate before using the result.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err == nil {
			err = yaml.Unmarshal(raw, &cfg)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: cannot use %s: %v (falling back to defaults)\n", path, err)
			cfg = defaultConfig()
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(statePathEnv); v != "" {
		c.StatePath = v
	}
	if v := os.Getenv(channelEnv); v != "" {
		c.Channel = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv(geminiModelEnv); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv(twilioAccountSIDEnv); v != "" {
		c.Twilio.AccountSID = v
	}
	if v := os.Getenv(twilioAuthTokenEnv); v != "" {
		c.Twilio.AuthToken = v
	}
	if v := os.Getenv(twilioWhatsAppFromEnv); v != "" {
		c.Twilio.From = v
	}
	if v := os.Getenv(whatsAppToEnv); v != "" {
		c.Twilio.To = v
	}
	if v := os.Getenv(smtpServerEnv); v != "" {
		c.SMTP.Server = v
	}
	if v := os.Getenv(smtpUserEnv); v != "" {
		c.SMTP.User = v
		if c.SMTP.From == "" {
			c.SMTP.From = v
		}
	}
	if v := os.Getenv(smtpPassEnv); v != "" {
		c.SMTP.Pass = v
	}
	if v := os.Getenv(smtpToEnv); v != "" {
		c.SMTP.To = v
	}

	switch strings.ToLower(os.Getenv(forceResetEnv)) {
	case "1", "true", "yes":
		c.ForceReset = true
	}
}

// Validate fails fast when required keys for the selected channel are
// missing. The process must not start a run it cannot finish.
func (c Config) Validate() error {
	var missing []string

	if c.Gemini.APIKey == "" {
		missing = append(missing, geminiAPIKeyEnv)
	}

	switch c.Channel {
	case ChannelWhatsApp:
		if c.Twilio.AccountSID == "" {
			missing = append(missing, twilioAccountSIDEnv)
		}
		if c.Twilio.AuthToken == "" {
			missing = append(missing, twilioAuthTokenEnv)
		}
		if c.Twilio.To == "" {
			missing = append(missing, whatsAppToEnv)
		}
	case ChannelEmail:
		if c.SMTP.Server == "" {
			missing = append(missing, smtpServerEnv)
		}
		if c.SMTP.User == "" {
			missing = append(missing, smtpUserEnv)
		}
		if c.SMTP.Pass == "" {
			missing = append(missing, smtpPassEnv)
		}
		if c.SMTP.To == "" {
			missing = append(missing, smtpToEnv)
		}
	default:
		return fmt.Errorf("unknown delivery channel %q (expected %q or %q)", c.Channel, ChannelWhatsApp, ChannelEmail)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		StatePath: "state.json",
		Source: SourceConfig{
			SearchURL: "https://www.bcb.gov.br/api/normativo/pesquisar" +
				"?assunto=Pix&tipo=Resolucao+BCB&pagina=1&quantidade=10" +
				"&ordem=dataPublicacao%20desc",
			DetailBaseURL: "https://www.bcb.gov.br/estabilidadefinanceira/exibenormativo",
		},
		Gemini: GeminiConfig{
			Model:           "gemini-2.5-flash",
			MaxOutputTokens: 700,
		},
		Channel: ChannelWhatsApp,
		Twilio: TwilioConfig{
			From: "whatsapp:+14155238886", // Twilio sandbox number
		},
		SMTP: SMTPConfig{
			Server: "smtp.gmail.com",
			Port:   587,
		},
	}
}

package storefront

// Package storefront loads the store display configuration from YAML.

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Steps    StepsConfig    `yaml:"steps"`
	Payments PaymentsConfig `yaml:"payments"`
	Shipping ShippingConfig `yaml:"shipping"`
}

type StoreConfig struct {
	Name         string `yaml:"name"`
	URL          string `yaml:"url"`
	SupportEmail string `yaml:"support_email"`
}

// StepsConfig overrides the default step labels shown in the progress
// indicator. Empty fields keep the defaults.
type StepsConfig struct {
	Customer string `yaml:"customer"`
	Shipping string `yaml:"shipping"`
	Payment  string `yaml:"payment"`
	Review   string `yaml:"review"`
}

type PaymentsConfig struct {
	Methods []PaymentMethod `yaml:"methods"`
}

type PaymentMethod struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Card  bool   `yaml:"card"`
}

type ShippingConfig struct {
	AllowedCountries []string `yaml:"allowed_countries"`
}

// Default returns the configuration used when no YAML file is provided.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Name: "StepShop",
			URL:  "https://stepshop.example",
		},
		Payments: PaymentsConfig{
			Methods: []PaymentMethod{
				{ID: "card", Label: "Credit or debit card", Card: true},
				{ID: "paypal", Label: "PayPal"},
			},
		},
		Shipping: ShippingConfig{
			AllowedCountries: []string{"US", "CA", "GB", "DE", "FR", "AU"},
		},
	}
}

// Load reads the configuration file at path. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read storefront config: %w", err)
	}
	return Parse(content)
}

func Parse(content []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(content, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validate(config *Config) error {
	if strings.TrimSpace(config.Store.Name) == "" {
		return fmt.Errorf("store name is required")
	}

	seen := make(map[string]bool)
	for i, method := range config.Payments.Methods {
		id := strings.TrimSpace(method.ID)
		if id == "" {
			return fmt.Errorf("payment method %d is missing an id", i)
		}
		if seen[id] {
			return fmt.Errorf("duplicate payment method: %s", id)
		}
		seen[id] = true
	}
	if len(config.Payments.Methods) == 0 {
		return fmt.Errorf("at least one payment method is required")
	}

	for _, country := range config.Shipping.AllowedCountries {
		if len(country) != 2 || country != strings.ToUpper(country) {
			return fmt.Errorf("allowed country must be an uppercase ISO code: %s", country)
		}
	}

	return nil
}

// Method looks up a configured payment method by id.
func (c *Config) Method(id string) (PaymentMethod, bool) {
	for _, method := range c.Payments.Methods {
		if method.ID == id {
			return method, true
		}
	}
	return PaymentMethod{}, false
}

// StepTitle returns the configured label override for a step id, or "".
func (c *Config) StepTitle(stepID string) string {
	switch stepID {
	case "customer":
		return c.Steps.Customer
	case "shipping":
		return c.Steps.Shipping
	case "payment":
		return c.Steps.Payment
	case "review":
		return c.Steps.Review
	}
	return ""
}

// CountryAllowed reports whether orders can ship to the given country.
// An empty allow list permits everything.
func (c *Config) CountryAllowed(country string) bool {
	if len(c.Shipping.AllowedCountries) == 0 {
		return true
	}
	country = strings.ToUpper(strings.TrimSpace(country))
	for _, allowed := range c.Shipping.AllowedCountries {
		if allowed == country {
			return true
		}
	}
	return false
}

package models

import (
	"encoding/json"
	"fmt"
)

// SettingsID is the fixed key of the singleton settings record
const SettingsID = "app-settings"

type PaymentProvider string

const (
	ProviderStripe PaymentProvider = "stripe"
	ProviderSquare PaymentProvider = "square"
	ProviderPayPal PaymentProvider = "paypal"
	ProviderVenmo  PaymentProvider = "venmo"
	ProviderCrypto PaymentProvider = "crypto"
	ProviderNone   PaymentProvider = "none"
)

// PaymentConfig is the provider specific part of the settings. Exactly one
// variant exists per provider kind.
type PaymentConfig interface {
	Provider() PaymentProvider
}

type StripeConfig struct {
	PublishableKey string `json:"apiKey,omitempty"`
	Currency       string `json:"currency,omitempty"`
}

type SquareConfig struct {
	ApplicationID string `json:"apiKey,omitempty"`
	Currency      string `json:"currency,omitempty"`
}

type PayPalConfig struct {
	AccountEmail string `json:"accountEmail,omitempty"`
	Currency     string `json:"currency,omitempty"`
}

type VenmoConfig struct {
	Handle string `json:"accountEmail,omitempty"`
}

type CryptoConfig struct {
	WalletAddress string `json:"walletAddress,omitempty"`
	Currency      string `json:"currency,omitempty"`
}

type NoneConfig struct{}

func (StripeConfig) Provider() PaymentProvider { return ProviderStripe }
func (SquareConfig) Provider() PaymentProvider { return ProviderSquare }
func (PayPalConfig) Provider() PaymentProvider { return ProviderPayPal }
func (VenmoConfig) Provider() PaymentProvider  { return ProviderVenmo }
func (CryptoConfig) Provider() PaymentProvider { return ProviderCrypto }
func (NoneConfig) Provider() PaymentProvider   { return ProviderNone }

type Settings struct {
	ID            string
	BrandColor    string
	PaymentConfig PaymentConfig
}

// DefaultSettings is used whenever neither the store nor a manifest provides settings
func DefaultSettings() Settings {
	return Settings{
		ID:            SettingsID,
		BrandColor:    "#4f46e5",
		PaymentConfig: NoneConfig{},
	}
}

func (s Settings) PaymentProvider() PaymentProvider {
	if s.PaymentConfig == nil {
		return ProviderNone
	}
	return s.PaymentConfig.Provider()
}

// Currency returns the configured currency, if the provider variant carries one
func (s Settings) Currency() string {
	switch c := s.PaymentConfig.(type) {
	case StripeConfig:
		return c.Currency
	case SquareConfig:
		return c.Currency
	case PayPalConfig:
		return c.Currency
	case CryptoConfig:
		return c.Currency
	}
	return ""
}

// settingsWire is the flat JSON shape shared with the visitor site
type settingsWire struct {
	ID              string          `json:"id"`
	BrandColor      string          `json:"brandColor"`
	PaymentProvider PaymentProvider `json:"paymentProvider"`
	PaymentConfig   json.RawMessage `json:"paymentConfig,omitempty"`
}

func (s Settings) MarshalJSON() ([]byte, error) {
	cfg := s.PaymentConfig
	if cfg == nil {
		cfg = NoneConfig{}
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(settingsWire{
		ID:              s.ID,
		BrandColor:      s.BrandColor,
		PaymentProvider: cfg.Provider(),
		PaymentConfig:   raw,
	})
}

func (s *Settings) UnmarshalJSON(data []byte) error {
	var w settingsWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	cfg, err := decodePaymentConfig(w.PaymentProvider, w.PaymentConfig)
	if err != nil {
		return err
	}
	s.ID = w.ID
	s.BrandColor = w.BrandColor
	s.PaymentConfig = cfg
	return nil
}

func decodePaymentConfig(provider PaymentProvider, raw json.RawMessage) (PaymentConfig, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	var (
		cfg PaymentConfig
		err error
	)
	switch provider {
	case ProviderStripe:
		var c StripeConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case ProviderSquare:
		var c SquareConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case ProviderPayPal:
		var c PayPalConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case ProviderVenmo:
		var c VenmoConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case ProviderCrypto:
		var c CryptoConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case ProviderNone, "":
		cfg = NoneConfig{}
	default:
		return nil, fmt.Errorf("unknown payment provider %q", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payment config: %w", provider, err)
	}
	return cfg, nil
}

package pricing

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile overlays the YAML document at path onto base. Fields missing from
// the file keep the base values; an empty path returns base untouched.
func LoadFile(path string, base Config) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read pricing config: %w", err)
	}
	return Parse(raw, base)
}

func Parse(raw []byte, base Config) (Config, error) {
	var doc struct {
		CommissionPercent *float64            `yaml:"commissionPercent"`
		ServiceFee        *float64            `yaml:"serviceFee"`
		DeliveryFee       *float64            `yaml:"deliveryFee"`
		DeliveryTiers     []DeliveryTier      `yaml:"deliveryTiers"`
		BaseCurrency      string              `yaml:"baseCurrency"`
		DefaultLocation   string              `yaml:"defaultLocation"`
		Locations         map[string]Location `yaml:"locations"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return base, fmt.Errorf("parse pricing config: %w", err)
	}

	out := base
	if doc.CommissionPercent != nil {
		out.CommissionPercent = *doc.CommissionPercent
	}
	if doc.ServiceFee != nil {
		out.ServiceFee = *doc.ServiceFee
	}
	if doc.DeliveryFee != nil {
		out.DeliveryFee = *doc.DeliveryFee
	}
	if len(doc.DeliveryTiers) > 0 {
		out.DeliveryTiers = doc.DeliveryTiers
	}
	if doc.BaseCurrency != "" {
		out.BaseCurrency = doc.BaseCurrency
	}
	if doc.DefaultLocation != "" {
		out.DefaultLocation = doc.DefaultLocation
	}
	if len(doc.Locations) > 0 {
		out.Locations = doc.Locations
	}
	if out.DefaultLocation != "" && len(out.Locations) > 0 {
		if _, ok := out.Locations[out.DefaultLocation]; !ok {
			return base, fmt.Errorf("default location %q: %w", out.DefaultLocation, ErrUnknownLocation)
		}
	}
	return out, nil
}

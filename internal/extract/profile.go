package extract

import (
	"fmt"

	"github.com/spf13/viper"
)

// Profile holds the lists and switches that tune extraction for a family of
// invoices. The compiled-in defaults match UAE tax invoices.
type Profile struct {
	// Regions are matched against the customer address in this order.
	Regions []string `mapstructure:"regions"`
	// AddressStoplist rejects "City, P.O. Box" candidates.
	AddressStoplist []string `mapstructure:"address_stoplist"`
	// TableMarkers identify a product table header.
	TableMarkers []string `mapstructure:"table_markers"`
	// RowStoplist lists description cells that are never products.
	RowStoplist []string `mapstructure:"row_stoplist"`
	// Terminators are line prefixes that close a stream table.
	Terminators []string `mapstructure:"terminators"`
	// UnitCodes are the unit-of-measure tokens of a plain-text line item.
	UnitCodes []string `mapstructure:"unit_codes"`
	// NullUnparsedDates drops a date that cannot be normalized instead of keeping it raw.
	NullUnparsedDates bool `mapstructure:"null_unparsed_dates"`
	// KeepPartialPatternRows keeps a plain-text line item whose numbers do not parse.
	KeepPartialPatternRows bool `mapstructure:"keep_partial_pattern_rows"`
}

// DefaultProfile returns the built-in extraction profile.
func DefaultProfile() Profile {
	return Profile{
		Regions: []string{
			"Abu Dhabi", "Dubai", "Sharjah", "Ajman", "Umm Al Quwain",
			"Fujairah", "Ras Al Khaimah", "UAQ", "RAK",
		},
		AddressStoplist: []string{"box", "p.o"},
		TableMarkers:    []string{"Item Description", "QTY", "Unit Rate", "Amount"},
		RowStoplist:     []string{"item description", "total", ""},
		Terminators:     []string{"total", "sub total", "subtotal"},
		UnitCodes:       []string{"UN", "EA"},
	}
}

// LoadProfile reads a profile file (YAML, JSON or TOML, chosen by extension)
// over the defaults. An empty path returns the defaults.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("regions", p.Regions)
	v.SetDefault("address_stoplist", p.AddressStoplist)
	v.SetDefault("table_markers", p.TableMarkers)
	v.SetDefault("row_stoplist", p.RowStoplist)
	v.SetDefault("terminators", p.Terminators)
	v.SetDefault("unit_codes", p.UnitCodes)
	v.SetDefault("null_unparsed_dates", p.NullUnparsedDates)
	v.SetDefault("keep_partial_pattern_rows", p.KeepPartialPatternRows)

	if err := v.ReadInConfig(); err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	var out Profile
	if err := v.Unmarshal(&out); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	if len(out.UnitCodes) == 0 {
		return Profile{}, fmt.Errorf("profile %s: unit_codes must not be empty", path)
	}
	return out, nil
}

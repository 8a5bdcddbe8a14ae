package booking

import (
	"github.com/mitchellh/mapstructure"
)

// Args is the create_booking argument set. Numeric fields accept JSON numbers
// or numeric strings; a value that cannot be coerced is left at zero and
// treated as absent.
type Args struct {
	DatetimeISO  string `mapstructure:"datetime_iso"`
	DatetimeText string `mapstructure:"datetime_text"`
	Note         string `mapstructure:"note"`
	Service      string `mapstructure:"service"`

	CustomerID  int64 `mapstructure:"customerId"`
	StaffID     int64 `mapstructure:"staffId"`
	ServiceID   int64 `mapstructure:"serviceId"`
	DurationMin int   `mapstructure:"durationMin"`
}

// aliases maps alternative spellings onto the canonical keys above.
var aliases = map[string]string{
	"datetimeIso":      "datetime_iso",
	"datetimeText":     "datetime_text",
	"customer_id":      "customerId",
	"staff_id":         "staffId",
	"service_id":       "serviceId",
	"duration_minutes": "durationMin",
	"durationMinutes":  "durationMin",
}

// DecodeArgs maps raw webhook args onto Args. The returned error lists fields
// that could not be coerced; the Args value is still usable.
func DecodeArgs(raw map[string]any) (Args, error) {
	in := make(map[string]any, len(raw))
	for k, v := range raw {
		in[k] = v
	}
	for alias, canonical := range aliases {
		v, ok := raw[alias]
		if !ok {
			continue
		}
		if _, set := raw[canonical]; !set {
			in[canonical] = v
		}
	}

	var a Args
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &a,
	})
	if err != nil {
		return Args{}, err
	}
	err = dec.Decode(in)
	return a, err
}

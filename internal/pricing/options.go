package pricing

import "fmt"

// Option is one entry of the static add-on catalog.  Options in the
// same non-empty group are mutually exclusive: selecting a second
// member replaces the first (last-write-wins).  Standalone options have
// an empty group.
type Option struct {
	Key   string `json:"key"`
	Group string `json:"group"`
	Label string `json:"label"`
	Price int64  `json:"price"`
}

// Catalog is the fixed option catalog.  Two exclusive groups (BBQ tiers
// and hot-water season tiers) plus the standalone fireplace toggle.
// The fireplace carries no charge but is tracked on the reservation for
// availability planning.
var Catalog = []Option{
	{Key: "bbq_basic", Group: "bbq", Label: "BBQ grill (charcoal)", Price: 30000},
	{Key: "bbq_deluxe", Group: "bbq", Label: "BBQ grill (deluxe set)", Price: 50000},
	{Key: "hotwater_summer", Group: "hotwater", Label: "Heated pool (summer season)", Price: 50000},
	{Key: "hotwater_winter", Group: "hotwater", Label: "Heated pool (winter season)", Price: 100000},
	{Key: "fireplace", Group: "", Label: "Fireplace", Price: 0},
}

var catalogByKey = func() map[string]Option {
	m := make(map[string]Option, len(Catalog))
	for _, o := range Catalog {
		m[o.Key] = o
	}
	return m
}()

// LookupOption returns the catalog entry for a key.
func LookupOption(key string) (Option, bool) {
	o, ok := catalogByKey[key]
	return o, ok
}

// SelectOption applies a selection to an existing set of option keys.
// Within an exclusive group the new key replaces any previously
// selected member; selecting an already-selected key is a no-op.
// Unknown keys are rejected.
func SelectOption(selected []string, key string) ([]string, error) {
	opt, ok := catalogByKey[key]
	if !ok {
		return nil, fmt.Errorf("unknown option key %q", key)
	}
	out := make([]string, 0, len(selected)+1)
	for _, k := range selected {
		cur, ok := catalogByKey[k]
		if !ok {
			continue
		}
		if k == key {
			continue
		}
		if opt.Group != "" && cur.Group == opt.Group {
			continue
		}
		out = append(out, k)
	}
	return append(out, key), nil
}

// NormalizeOptions reduces an arbitrary key list to a valid selection by
// replaying it through SelectOption, so the last member named in each
// exclusive group wins.  Unknown keys are rejected.
func NormalizeOptions(keys []string) ([]string, error) {
	var out []string
	var err error
	for _, k := range keys {
		out, err = SelectOption(out, k)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// OptionFee sums the catalog prices of the selected keys.  The caller
// is expected to have normalized the selection first; two members of
// the same exclusive group are rejected here as a safety net.
func OptionFee(keys []string) (int64, error) {
	var total int64
	groupSeen := make(map[string]string, len(keys))
	for _, k := range keys {
		opt, ok := catalogByKey[k]
		if !ok {
			return 0, fmt.Errorf("unknown option key %q", k)
		}
		if opt.Group != "" {
			if prev, dup := groupSeen[opt.Group]; dup {
				return 0, fmt.Errorf("options %q and %q are mutually exclusive", prev, k)
			}
			groupSeen[opt.Group] = k
		}
		total += opt.Price
	}
	return total, nil
}

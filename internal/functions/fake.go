package functions

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// providerAliases maps common provider spellings onto gofakeit lookups.
var providerAliases = map[string]string{
	"postalcode":    "zip",
	"postcode":      "zip",
	"zipcode":       "zip",
	"phonenumber":   "phone",
	"streetaddress": "street",
	"companyname":   "company",
	"catchphrase":   "slogan",
	"text":          "sentence",
	"job":           "jobtitle",
	"emailaddress":  "email",
	"ipv4":          "ipv4address",
	"ipv6":          "ipv6address",
}

// ProviderKey normalizes a provider name: "First_Name", "FirstName" and
// "firstname" all resolve to "firstname".
func ProviderKey(name string) string {
	key := strings.ToLower(name)
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	if alias, ok := providerAliases[key]; ok {
		return alias
	}
	return key
}

// LookupProvider returns the gofakeit lookup for a provider name. The
// normalized key wins; names gofakeit itself spells with separators, such
// as email_text, resolve by their lowercased spelling.
func LookupProvider(name string) (*gofakeit.Info, error) {
	for _, key := range []string{ProviderKey(name), strings.ToLower(name)} {
		if info := gofakeit.GetFuncLookup(key); info != nil && info.Generate != nil {
			return info, nil
		}
	}
	return nil, fmt.Errorf("unknown fake provider `%s`", name)
}

// Providers returns the lookup names of all scalar fake providers.
func Providers() []string {
	names := make([]string, 0, len(gofakeit.FuncLookups))
	for name, info := range gofakeit.FuncLookups {
		if info.Generate == nil {
			continue
		}
		switch info.Output {
		case "string", "int", "float64", "float32", "bool", "uint", "time.Time":
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Fake generates a value from a gofakeit provider. Keyword parameters are
// passed through as lookup parameters.
func Fake(f *gofakeit.Faker, provider string, params []Keyword) (any, error) {
	info, err := LookupProvider(provider)
	if err != nil {
		return nil, err
	}

	mp := gofakeit.NewMapParams()
	for _, p := range params {
		switch v := p.Value.(type) {
		case []any:
			for _, item := range v {
				mp.Add(strings.ToLower(p.Name), fmt.Sprint(item))
			}
		default:
			mp.Add(strings.ToLower(p.Name), fmt.Sprint(v))
		}
	}

	out, err := info.Generate(f, mp, info)
	if err != nil {
		return nil, fmt.Errorf("fake provider `%s`: %w", provider, err)
	}
	return scalar(provider, out)
}

// scalar maps provider output onto row value types.
func scalar(provider string, v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, int64, float64, time.Time:
		return val, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil //nolint:gosec // G115: provider ranges are small
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	default:
		return nil, fmt.Errorf("fake provider `%s` does not produce a scalar value", provider)
	}
}

package functions

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapfake/pkg/core"
)

func builtins() []*Function {
	return []*Function{
		{
			Name:        "fake",
			Description: "Fake value from a provider, e.g. fake: FirstName",
			Params:      []Param{{Name: "provider", Required: true}},
			AnyKeywords: true,
			Namespace:   true,
			Call:        callFake,
		},
		{
			Name:        "random_number",
			Description: "Random number in [min, max], optionally stepped",
			Params: []Param{
				{Name: "min", Required: true},
				{Name: "max", Required: true},
				{Name: "step"},
			},
			Call: callRandomNumber,
		},
		{
			Name:        "random_choice",
			Description: "One of the given choices; keyword choices are weighted",
			Variadic:    true,
			AnyKeywords: true,
			Call:        callRandomChoice,
		},
		{
			Name:        "reference",
			Description: "Reference to the latest row of an object or nickname",
			Params:      []Param{{Name: "x", Required: true}},
			Call:        callReference,
		},
		{
			Name:        "random_reference",
			Description: "Reference to a random row of an object or nickname",
			Params:      []Param{{Name: "x", Required: true}},
			Call:        callRandomReference,
		},
		{
			Name:        "date",
			Description: "Date from a string or from year, month and day",
			Params: []Param{
				{Name: "value", Required: true},
				{Name: "month"},
				{Name: "day"},
			},
			Call: callDate,
		},
		{
			Name:        "date_between",
			Description: "Random date between two dates (inclusive)",
			Params: []Param{
				{Name: "start_date", Required: true},
				{Name: "end_date", Required: true},
			},
			Call: callDateBetween,
		},
		{
			Name:        "uuid",
			Description: "Random UUID drawn from the run's seed",
			Call: func(c *Context, _ *Args) (any, error) {
				return c.Faker.UUID(), nil
			},
		},
		{
			Name:        "count_of",
			Description: "Number of rows generated so far for an object or nickname",
			Params:      []Param{{Name: "x", Required: true}},
			Call:        callCountOf,
		},
		{
			Name:        "if_",
			Description: "then when condition is truthy, else else_",
			Params: []Param{
				{Name: "condition", Required: true},
				{Name: "then", Required: true},
				{Name: "else_"},
			},
			Call: func(_ *Context, args *Args) (any, error) {
				if Truthy(args.Value("condition")) {
					return args.Value("then"), nil
				}
				return args.Value("else_"), nil
			},
		},
	}
}

func callFake(c *Context, args *Args) (any, error) {
	provider, err := args.String("provider")
	if err != nil {
		return nil, fmt.Errorf("parameter `provider`: %w", err)
	}
	return Fake(c.Faker, provider, args.Keywords)
}

func callRandomNumber(c *Context, args *Args) (any, error) {
	lo, hi := args.Value("min"), args.Value("max")
	if isFloat(lo) || isFloat(hi) {
		fmin, err := ToFloat(lo)
		if err != nil {
			return nil, fmt.Errorf("parameter `min`: %w", err)
		}
		fmax, err := ToFloat(hi)
		if err != nil {
			return nil, fmt.Errorf("parameter `max`: %w", err)
		}
		if fmin > fmax {
			return nil, fmt.Errorf("min %v is greater than max %v", fmin, fmax)
		}
		sv, ok := args.Get("step")
		if !ok || sv == nil {
			return c.Faker.Float64Range(fmin, fmax), nil
		}
		step, err := ToFloat(sv)
		if err != nil {
			return nil, fmt.Errorf("parameter `step`: %w", err)
		}
		if step <= 0 {
			return nil, fmt.Errorf("step must be positive, got %v", step)
		}
		steps := math.Floor((fmax - fmin) / step)
		if steps > math.MaxInt32 {
			return nil, fmt.Errorf("step %v is too small for the range %v to %v", step, fmin, fmax)
		}
		return fmin + step*float64(c.Faker.IntRange(0, int(steps))), nil
	}

	imin, err := args.Int("min", 0)
	if err != nil {
		return nil, err
	}
	imax, err := args.Int("max", 0)
	if err != nil {
		return nil, err
	}
	step, err := args.Int("step", 1)
	if err != nil {
		return nil, err
	}
	if imin > imax {
		return nil, fmt.Errorf("min %d is greater than max %d", imin, imax)
	}
	if step <= 0 {
		return nil, fmt.Errorf("step must be positive, got %d", step)
	}
	steps := (imax - imin) / step
	return imin + step*int64(c.Faker.IntRange(0, int(steps))), nil
}

func callRandomChoice(c *Context, args *Args) (any, error) {
	switch {
	case len(args.Rest) > 0 && len(args.Keywords) > 0:
		return nil, errors.New("use either plain choices or weighted choices, not both")
	case len(args.Rest) > 0:
		return args.Rest[c.Faker.IntN(len(args.Rest))], nil
	case len(args.Keywords) > 0:
		options := make([]any, len(args.Keywords))
		weights := make([]float32, len(args.Keywords))
		for i, kw := range args.Keywords {
			w, err := weight(kw.Value)
			if err != nil {
				return nil, fmt.Errorf("choice `%s`: %w", kw.Name, err)
			}
			options[i], weights[i] = kw.Name, w
		}
		return c.Faker.Weighted(options, weights)
	default:
		return nil, errors.New("needs at least one choice")
	}
}

// weight accepts numbers and percentages such as "30%".
func weight(v any) (float32, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if strings.HasSuffix(s, "%") {
			f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 32)
			if err != nil {
				return 0, fmt.Errorf("invalid weight %q", s)
			}
			return nonNegative(f)
		}
	}
	f, err := ToFloat(v)
	if err != nil {
		return 0, fmt.Errorf("invalid weight: %w", err)
	}
	return nonNegative(f)
}

func nonNegative(f float64) (float32, error) {
	if f < 0 {
		return 0, fmt.Errorf("negative weight %v", f)
	}
	return float32(f), nil
}

func callReference(c *Context, args *Args) (any, error) {
	switch v := args.Value("x").(type) {
	case core.Reference:
		return v, nil
	case string:
		if c.Rows == nil {
			return nil, errors.New("no rows available")
		}
		row, ok := c.Rows.Latest(v)
		if !ok {
			return nil, fmt.Errorf("no `%s` rows have been generated", v)
		}
		return row.Ref(), nil
	default:
		return nil, fmt.Errorf("expected an object name or row, got %s", TypeName(v))
	}
}

func callRandomReference(c *Context, args *Args) (any, error) {
	name, err := args.String("x")
	if err != nil {
		return nil, err
	}
	if c.Rows == nil {
		return nil, errors.New("no rows available")
	}
	rows := c.Rows.All(name)
	if len(rows) == 0 {
		return nil, fmt.Errorf("no `%s` rows have been generated", name)
	}
	return rows[c.Faker.IntN(len(rows))].Ref(), nil
}

func callCountOf(c *Context, args *Args) (any, error) {
	name, err := args.String("x")
	if err != nil {
		return nil, err
	}
	if c.Rows == nil {
		return int64(0), nil
	}
	return int64(c.Rows.Count(name)), nil
}

func callDate(c *Context, args *Args) (any, error) {
	if _, ok := args.Get("month"); !ok {
		return parseDate(c, args.Value("value"))
	}
	year, err := args.Int("value", 0)
	if err != nil {
		return nil, err
	}
	month, err := args.Int("month", 1)
	if err != nil {
		return nil, err
	}
	day, err := args.Int("day", 1)
	if err != nil {
		return nil, err
	}
	d := time.Date(int(year), time.Month(month), int(day), 0, 0, 0, 0, time.UTC)
	if d.Month() != time.Month(month) || d.Day() != int(day) {
		return nil, fmt.Errorf("%04d-%02d-%02d is not a valid date", year, month, day)
	}
	return d, nil
}

func callDateBetween(c *Context, args *Args) (any, error) {
	start, err := parseDate(c, args.Value("start_date"))
	if err != nil {
		return nil, fmt.Errorf("parameter `start_date`: %w", err)
	}
	end, err := parseDate(c, args.Value("end_date"))
	if err != nil {
		return nil, fmt.Errorf("parameter `end_date`: %w", err)
	}
	days := int(end.Sub(start).Hours() / 24)
	if days < 0 {
		return nil, fmt.Errorf("start_date %s is after end_date %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	return start.AddDate(0, 0, c.Faker.IntRange(0, days)), nil
}

var relativeDate = regexp.MustCompile(`^([+-]\d+)([dwmy])$`)

// parseDate accepts dates, ISO strings, "today" and offsets from today such
// as "-30d" or "+1y". Today is the run's reference date.
func parseDate(c *Context, v any) (time.Time, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(strings.ToLower(s))
		today := c.Date()
		if s == "today" {
			return today, nil
		}
		if m := relativeDate.FindStringSubmatch(s); m != nil {
			n, _ := strconv.Atoi(m[1])
			switch m[2] {
			case "d":
				return today.AddDate(0, 0, n), nil
			case "w":
				return today.AddDate(0, 0, 7*n), nil
			case "m":
				return today.AddDate(0, n, 0), nil
			default:
				return today.AddDate(n, 0, 0), nil
			}
		}
	}
	t, err := ToTime(v)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func isFloat(v any) bool {
	_, ok := v.(float64)
	return ok
}

package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/amishk599/remoteboard/internal/model"
)

type salary struct {
	Min      *int64
	Max      *int64
	Currency string
	Cycle    model.SalaryCycle
}

func (s salary) known() bool {
	return s.Min != nil || s.Max != nil
}

var (
	amountRegex   = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*([kKmM])?\b`)
	currencyRegex = regexp.MustCompile(`\b(USD|EUR|GBP|CAD|AUD|NZD|CHF|BRL|MXN|ARS|COP|CLP|PEN|INR|JPY|SGD|SEK|NOK|DKK|PLN|ZAR)\b`)
)

// symbol prefixes, longest first so "CA$" wins over "$".
var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"CA$", "CAD"}, {"C$", "CAD"}, {"A$", "AUD"}, {"R$", "BRL"}, {"MX$", "MXN"},
	{"$", "USD"}, {"€", "EUR"}, {"£", "GBP"}, {"₹", "INR"}, {"¥", "JPY"},
}

// parseSalary turns whatever the ATS exposed into integer bounds. Anything
// that does not parse leaves the salary unknown; it is never an error.
func parseSalary(raw *model.RawSalary) salary {
	if raw == nil {
		return salary{Cycle: model.CycleYearly}
	}

	out := salary{
		Currency: strings.ToUpper(strings.TrimSpace(raw.Currency)),
	}
	if raw.Interval != "" {
		out.Cycle = salaryCycle(raw.Interval)
	} else {
		out.Cycle = salaryCycle(raw.Summary)
	}

	if raw.Min != nil || raw.Max != nil {
		scale := 1.0
		if raw.InCents {
			scale = 100
		}
		out.Min = amount(raw.Min, scale)
		out.Max = amount(raw.Max, scale)
	} else if raw.Summary != "" {
		min, max := parseSummary(raw.Summary)
		out.Min, out.Max = min, max
	}

	if out.Currency == "" && raw.Summary != "" {
		out.Currency = summaryCurrency(raw.Summary)
	}
	if out.Min != nil && out.Max != nil && *out.Max < *out.Min {
		out.Min, out.Max = out.Max, out.Min
	}
	return out
}

func amount(v *float64, scale float64) *int64 {
	if v == nil || *v <= 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	n := int64(math.Round(*v / scale))
	return &n
}

// parseSummary reads up to two amounts from text like "$120K – $150K" or
// "USD 50,000-70,000 per year".
func parseSummary(summary string) (*int64, *int64) {
	var values []int64
	for _, m := range amountRegex.FindAllStringSubmatch(summary, -1) {
		num, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil || num <= 0 {
			continue
		}
		switch strings.ToLower(m[2]) {
		case "k":
			num *= 1_000
		case "m":
			num *= 1_000_000
		}
		values = append(values, int64(math.Round(num)))
		if len(values) == 2 {
			break
		}
	}

	switch len(values) {
	case 0:
		return nil, nil
	case 1:
		return &values[0], &values[0]
	default:
		return &values[0], &values[1]
	}
}

func summaryCurrency(summary string) string {
	if m := currencyRegex.FindString(strings.ToUpper(summary)); m != "" {
		return m
	}
	for _, cs := range currencySymbols {
		if strings.Contains(summary, cs.symbol) {
			return cs.code
		}
	}
	return ""
}

func salaryCycle(text string) model.SalaryCycle {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "hour") || strings.Contains(t, "/hr"):
		return model.CycleHourly
	case strings.Contains(t, "day") || strings.Contains(t, "daily"):
		return model.CycleDaily
	case strings.Contains(t, "week"):
		return model.CycleWeekly
	case strings.Contains(t, "month"):
		return model.CycleMonthly
	default:
		return model.CycleYearly
	}
}

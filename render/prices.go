package render

import (
	"fmt"
	"strings"

	"farmsim-notifier/pkg/farmsim"
)

// PeriodTitle turns a raw period label such as "EARLY_SPRING" into "Early Spring".
func PeriodTitle(period string) string {
	return title(period)
}

// NoPriceData is the reply for a commodity missing from the economy feed.
func NoPriceData(commodity string) string {
	return fmt.Sprintf("No data available for %s.", commodity)
}

// PriceHistory renders a commodity's price history with the highest and lowest periods
// highlighted.
func PriceHistory(commodity string, points []farmsim.PricePoint) string {
	if len(points) == 0 {
		return fmt.Sprintf("No history data available for %s.", commodity)
	}

	hi, lo := 0, 0
	for i, p := range points {
		if p.Price > points[hi].Price {
			hi = i
		}
		if p.Price < points[lo].Price {
			lo = i
		}
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("**%s Price History:**\n---\n", commodity))
	for i, p := range points {
		if i == hi || i == lo {
			b.WriteString(fmt.Sprintf("**%s**: **$%d**\n", PeriodTitle(p.Period), p.Price))
		} else {
			b.WriteString(fmt.Sprintf("**%s**: $%d\n", PeriodTitle(p.Period), p.Price))
		}
	}
	b.WriteString("---\n")
	b.WriteString(fmt.Sprintf("🔼 Highest: **%s ($%d)**\n", PeriodTitle(points[hi].Period), points[hi].Price))
	b.WriteString(fmt.Sprintf("🔽 Lowest: **%s ($%d)**", PeriodTitle(points[lo].Period), points[lo].Price))
	return b.String()
}

// CropList renders the pinned notice listing the commodities /prices understands.
func CropList(names []string) string {
	return "📋 **Available Crops for /prices**\n\n" +
		strings.Join(names, ", ") +
		"\n\nUse `/prices <crop>` to view the price history or best prices."
}

// Vehicles lists vehicles as "Name (Type)", three per line. Types found in replacements
// are shown by their display name; keys may be lower-cased.
func Vehicles(vehicles []farmsim.Vehicle, replacements map[string]string) string {
	var b strings.Builder
	for i, v := range vehicles {
		switch {
		case i == 0:
		case i%3 == 0:
			b.WriteString("\n")
		default:
			b.WriteString(", ")
		}
		typ := v.Type
		if r, ok := replacements[typ]; ok {
			typ = r
		} else if r, ok := replacements[strings.ToLower(typ)]; ok {
			typ = r
		}
		b.WriteString(fmt.Sprintf("%s (%s)", v.Name, typ))
	}
	return b.String()
}

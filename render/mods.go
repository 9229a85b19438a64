package render

import (
	"fmt"
	"strings"

	"farmsim-notifier/pkg/farmsim"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is a named group of mods, selected by keywords found in the mod's display name.
type Category struct {
	Name     string   `mapstructure:"name" json:"name"`
	Keywords []string `mapstructure:"keywords" json:"keywords"`
}

// Group is a category together with the mods that fell into it.
type Group struct {
	Category string
	Mods     []farmsim.Mod
}

// DefaultCategories is the built-in category table. The first entry is the fallback.
var DefaultCategories = []Category{
	{Name: "gameplay_mods", Keywords: []string{"Real Mower", "Courseplay", "AutoDrive", "Precision Farming", "Seasons", "Realistic", "Enhanced", "Helper", "Manure System"}},
	{Name: "maps", Keywords: []string{"Map", "Valley", "Hills", "Island"}},
	{Name: "vehicles", Keywords: []string{"Tractor", "Truck", "Harvester", "Combine", "Loader", "Trailer", "Pickup"}},
	{Name: "implements", Keywords: []string{"Plow", "Plough", "Cultivator", "Seeder", "Sprayer", "Mower", "Baler", "Tedder", "Header"}},
	{Name: "placeables", Keywords: []string{"Silo", "Shed", "Barn", "Storage", "Production", "Greenhouse", "Placeable", "Building"}},
}

// Categorize assigns each mod to the first category with a keyword contained in the mod's
// name (case-insensitive). Mods matching nothing go to the first category. Only non-empty
// groups are returned, in category order.
func Categorize(mods []farmsim.Mod, categories []Category) []Group {
	if len(categories) == 0 {
		categories = DefaultCategories
	}

	buckets := make([][]farmsim.Mod, len(categories))
	for _, mod := range mods {
		idx := categoryFor(mod.Name, categories)
		buckets[idx] = append(buckets[idx], mod)
	}

	var groups []Group
	for i, c := range categories {
		if len(buckets[i]) > 0 {
			groups = append(groups, Group{Category: c.Name, Mods: buckets[i]})
		}
	}
	return groups
}

func categoryFor(name string, categories []Category) int {
	lower := strings.ToLower(name)
	for i, c := range categories {
		for _, kw := range c.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return i
			}
		}
	}
	return 0
}

// CategoryTitle turns a category name such as "gameplay_mods" into "Gameplay Mods".
func CategoryTitle(name string) string {
	return title(name)
}

// title replaces underscores with spaces and title-cases the result.
// Casers are stateful, so one is built per call.
func title(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// ModLine formats one mod as "Name (vX) by Author".
func ModLine(mod farmsim.Mod) string {
	return fmt.Sprintf("%s (v%s) by %s", mod.Name, mod.Version, mod.Author)
}

// ModsBlock renders the grouped bullet lists.
func ModsBlock(groups []Group) string {
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(fmt.Sprintf("**%s** (%d)", CategoryTitle(g.Category), len(g.Mods)))
		for _, mod := range g.Mods {
			b.WriteString("\n- ")
			b.WriteString(ModLine(mod))
		}
	}
	return b.String()
}

// ModsHeader prefixes a standalone mods message.
func ModsHeader(count int) string {
	return fmt.Sprintf("📦 **Installed Mods (%d)**\n\n", count)
}

// ModsFallback replaces a mods message that would exceed the platform limit.
func ModsFallback(groups []Group, limit int) string {
	var b strings.Builder
	total := 0
	for _, g := range groups {
		total += len(g.Mods)
	}
	b.WriteString(ModsHeader(total))
	b.WriteString("The full mod list is too long to display here.\n")
	for _, g := range groups {
		b.WriteString(fmt.Sprintf("\n- %s: %d", CategoryTitle(g.Category), len(g.Mods)))
	}
	return Truncate(b.String(), limit)
}

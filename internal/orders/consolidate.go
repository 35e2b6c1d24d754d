package orders

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrEmptyOrder indicates consolidation was attempted over zero selections.
var ErrEmptyOrder = errors.New("orders: order must contain at least one selection")

type groupKey struct {
	drinkTypeName    string
	sizeName         string
	sizeAbbreviation string
	milkOptionName   string
	sugar            int
	notes            string
}

// Consolidate groups resolved selections into deduplicated summary lines.
//
// Two selections collapse into one line only when all six drink fields match
// exactly; differing notes or sugar never collapse, so personalization
// survives. Output is sorted by descending count, then drink type name
// (case-sensitive ascending), then size abbreviation, with the remaining
// group fields as tie-breakers, so the result is fully deterministic under
// input reordering and repetition. Pure: no lookups, no side effects.
func Consolidate(resolved []ResolvedSelection) ([]ConsolidatedLine, error) {
	if len(resolved) == 0 {
		return nil, ErrEmptyOrder
	}

	counts := make(map[groupKey]int, len(resolved))
	for _, selection := range resolved {
		key := groupKey{
			drinkTypeName:    selection.DrinkTypeName,
			sizeName:         selection.SizeName,
			sizeAbbreviation: selection.SizeAbbreviation,
			milkOptionName:   selection.MilkOptionName,
			sugar:            selection.Sugar,
			notes:            selection.Notes,
		}
		counts[key]++
	}

	lines := make([]ConsolidatedLine, 0, len(counts))
	for key, count := range counts {
		lines = append(lines, ConsolidatedLine{
			Count:            count,
			DrinkTypeName:    key.drinkTypeName,
			SizeName:         key.sizeName,
			SizeAbbreviation: key.sizeAbbreviation,
			MilkOptionName:   key.milkOptionName,
			Sugar:            key.sugar,
			Notes:            key.notes,
			DisplayText: formatLine(count, key.sizeAbbreviation, key.milkOptionName,
				key.drinkTypeName, key.sugar, key.notes),
		})
	}

	// The remaining group fields break ties so that lines differing only in
	// milk, sugar, or notes still come out in a fixed order; map iteration
	// must never leak into the result.
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Count != lines[j].Count {
			return lines[i].Count > lines[j].Count
		}
		if lines[i].DrinkTypeName != lines[j].DrinkTypeName {
			return lines[i].DrinkTypeName < lines[j].DrinkTypeName
		}
		if lines[i].SizeAbbreviation != lines[j].SizeAbbreviation {
			return lines[i].SizeAbbreviation < lines[j].SizeAbbreviation
		}
		if lines[i].MilkOptionName != lines[j].MilkOptionName {
			return lines[i].MilkOptionName < lines[j].MilkOptionName
		}
		if lines[i].Sugar != lines[j].Sugar {
			return lines[i].Sugar < lines[j].Sugar
		}
		if lines[i].Notes != lines[j].Notes {
			return lines[i].Notes < lines[j].Notes
		}
		return lines[i].SizeName < lines[j].SizeName
	})

	for position := range lines {
		lines[position].Position = position
	}
	return lines, nil
}

// formatLine renders the barista-facing text for one line. The token order is
// fixed: "{count}x {abbr} [{milk} ]{drink}[, {sugar}s][ ({notes})]". Baristas
// read this verbatim off the shared view, so the format must stay stable.
func formatLine(count int, sizeAbbreviation, milkOptionName, drinkTypeName string, sugar int, notes string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dx %s ", count, sizeAbbreviation)
	if milkOptionName != "" {
		b.WriteString(milkOptionName)
		b.WriteString(" ")
	}
	b.WriteString(drinkTypeName)
	if sugar > 0 {
		fmt.Fprintf(&b, ", %ds", sugar)
	}
	if notes != "" {
		fmt.Fprintf(&b, " (%s)", notes)
	}
	return b.String()
}

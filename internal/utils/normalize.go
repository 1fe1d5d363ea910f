package utils

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeVegetable приводит название овоща к ключу каталога: "Bell Pepper" -> "bell_pepper".
func NormalizeVegetable(raw string) string {
	normalized := strings.TrimSpace(raw)
	normalized = strings.ToLower(normalized)
	normalized = strings.Join(strings.Fields(normalized), "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	return normalized
}

// NormalizeLocation приводит название города к виду из таблицы коэффициентов: "  mumbai " -> "Mumbai".
func NormalizeLocation(raw string) string {
	normalized := strings.Join(strings.Fields(raw), " ")
	if normalized == "" {
		return ""
	}
	return cases.Title(language.English).String(normalized)
}

func Round(value float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(value*scale) / scale
}

package services

import (
	"strings"
	"time"
)

// --- Общие хелперы ---

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nameKey нормализует имя игрока для проверки пересечений:
// обрезает пробелы по краям и приводит к нижнему регистру.
func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// normalizeMembers чистит входной список участников: обрезает пробелы,
// выбрасывает пустые строки, убирает дубликаты без учёта регистра и
// обрезает список до размера команды. Пустой результат заменяется капитаном,
// если fallback непустой (неполные команды допустимы).
func normalizeMembers(members []string, fallback string, teamSize int) []string {
	seen := make(map[string]struct{}, len(members))
	result := make([]string, 0, teamSize)

	for _, m := range members {
		name := strings.TrimSpace(m)
		if name == "" {
			continue
		}
		key := nameKey(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, name)
		if len(result) == teamSize {
			break
		}
	}

	if len(result) == 0 && strings.TrimSpace(fallback) != "" {
		result = append(result, strings.TrimSpace(fallback))
	}
	return result
}

func memberNameKeys(members []string) []string {
	keys := make([]string, 0, len(members))
	for _, m := range members {
		keys = append(keys, nameKey(m))
	}
	return keys
}

// startAtLayouts — форматы, в которых админы вводят время старта.
var startAtLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02.01.2006 15:04",
}

// parseStartAt пытается распарсить свободно введённое время старта.
// Непарсящееся значение — не ошибка: в этом случае ограничение на
// редактирование состава не применяется.
func parseStartAt(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range startAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(v, low, high int) int {
	if high < low {
		high = low
	}
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

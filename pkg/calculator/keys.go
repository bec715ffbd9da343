package calculator

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	keySpaces  = regexp.MustCompile(`[\s\p{Zs}\x{feff}\x{2028}\x{2029}]+`)
	keyInvalid = regexp.MustCompile(`[^a-z0-9_]`)
)

// DeriveKey turns a variable display name into a formula parameter name:
// lowercased, whitespace runs replaced by "_", everything outside [a-z0-9_]
// dropped. "Peso (kg)" becomes "peso_kg".
func DeriveKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = keySpaces.ReplaceAllString(key, "_")
	return keyInvalid.ReplaceAllString(key, "")
}

// AssignKeys derives a key for every name. A key already taken by an earlier
// name gets the first free suffix _2, _3, ...
func AssignKeys(names []string) []string {
	keys := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	for i, name := range names {
		base := DeriveKey(name)
		key := base
		for counter := 2; taken[key]; counter++ {
			key = base + "_" + strconv.Itoa(counter)
		}
		taken[key] = true
		keys[i] = key
	}
	return keys
}

package fault

import (
	"encoding/json"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Rule names a structural corruption transform.
type Rule string

// The ten corruption rules. All preserve the input's shape class
// (map/sequence/scalar) except RuleWrongTypes and RuleSchemaViolations,
// which violate it deliberately.
const (
	RuleMissingData      Rule = "missing_data"
	RuleInvalidStructure Rule = "invalid_structure"
	RuleWrongTypes       Rule = "wrong_types"
	RuleBrokenReferences Rule = "broken_references"
	RuleTruncatedData    Rule = "truncated_data"
	RuleDuplicateEntries Rule = "duplicate_entries"
	RuleTimestampSkew    Rule = "timestamp_skew"
	RuleEncodingErrors   Rule = "encoding_errors"
	RuleSchemaViolations Rule = "schema_violations"
	RulePartialWrites    Rule = "partial_writes"
)

// AllRules lists every corruption rule, in a stable order.
var AllRules = []Rule{
	RuleMissingData,
	RuleInvalidStructure,
	RuleWrongTypes,
	RuleBrokenReferences,
	RuleTruncatedData,
	RuleDuplicateEntries,
	RuleTimestampSkew,
	RuleEncodingErrors,
	RuleSchemaViolations,
	RulePartialWrites,
}

// timestampKeys are the field-name fragments RuleTimestampSkew matches.
var timestampKeys = []string{"timestamp", "created_at", "updated_at", "time", "date"}

// Corruptor applies named corruption rules to tree-shaped values
// (maps, sequences, scalars).
//
// Rules never mutate their input: the value is deep-copied first. All
// randomness flows through the seeded source, so a run is reproducible
// given its seed.
type Corruptor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewCorruptor creates a corruptor with a seeded random source.
func NewCorruptor(seed int64) *Corruptor {
	return &Corruptor{rng: rand.New(rand.NewSource(seed))}
}

// Apply returns a corrupted copy of v under the given rule.
// Unknown rules return the copy unchanged.
func (c *Corruptor) Apply(v any, rule Rule) any {
	if v == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apply(deepCopy(v), rule)
}

// ApplyPartial corrupts only a ~1/3 subset of a map's or sequence's entries,
// leaving the rest intact. Scalars fall back to whole-value corruption.
func (c *Corruptor) ApplyPartial(v any, rule Rule) any {
	if v == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	switch val := deepCopy(v).(type) {
	case map[string]any:
		if len(val) == 0 {
			return val
		}
		for _, key := range c.sampleKeys(val, third(len(val))) {
			val[key] = c.apply(val[key], rule)
		}
		return val
	case []any:
		if len(val) == 0 {
			return val
		}
		for _, idx := range c.sampleIndices(len(val), third(len(val))) {
			val[idx] = c.apply(val[idx], rule)
		}
		return val
	default:
		return c.apply(val, rule)
	}
}

// apply dispatches on rule. Caller must hold c.mu and pass an already-copied
// value.
func (c *Corruptor) apply(v any, rule Rule) any {
	switch rule {
	case RuleMissingData:
		return c.missingData(v)
	case RuleInvalidStructure:
		return c.invalidStructure(v)
	case RuleWrongTypes:
		return c.wrongTypes(v)
	case RuleBrokenReferences:
		return c.brokenReferences(v)
	case RuleTruncatedData:
		return c.truncatedData(v)
	case RuleDuplicateEntries:
		return c.duplicateEntries(v)
	case RuleTimestampSkew:
		return c.timestampSkew(v)
	case RuleEncodingErrors:
		return c.encodingErrors(v)
	case RuleSchemaViolations:
		return c.schemaViolations(v)
	case RulePartialWrites:
		return c.partialWrites(v)
	default:
		return v
	}
}

// missingData deletes ~1/3 of map keys or list entries, or a contiguous
// ~1/4-length chunk of a string.
func (c *Corruptor) missingData(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 {
			return val
		}
		for _, key := range c.sampleKeys(val, third(len(val))) {
			delete(val, key)
		}
		return val
	case []any:
		if len(val) == 0 {
			return val
		}
		removed := c.sampleIndices(len(val), third(len(val)))
		sort.Sort(sort.Reverse(sort.IntSlice(removed)))
		for _, idx := range removed {
			val = append(val[:idx], val[idx+1:]...)
		}
		return val
	case string:
		runes := []rune(val)
		if len(runes) <= 10 {
			return val
		}
		chunk := len(runes) / 4
		start := c.rng.Intn(len(runes) - chunk)
		return string(runes[:start]) + string(runes[start+chunk:])
	default:
		return val
	}
}

// invalidStructure breaks the parseability of string-encoded structured
// data by swapping delimiter characters; maps and lists are serialized
// first, then corrupted the same way.
func (c *Corruptor) invalidStructure(v any) any {
	switch val := v.(type) {
	case string:
		if json.Valid([]byte(val)) {
			r := strings.NewReplacer(`"`, `'`, "{", "[", "}", "]")
			return r.Replace(val)
		}
		return strings.NewReplacer(" ", "}{", ",", "}{").Replace(val)
	case map[string]any, []any:
		encoded, err := json.Marshal(val)
		if err != nil {
			return val
		}
		return strings.NewReplacer(`"`, `'`, "{", "[").Replace(string(encoded))
	default:
		return val
	}
}

// wrongTypes flips values across type boundaries: numeric strings become
// numbers and vice versa, booleans become integers, single-element lists
// collapse, lists become index-keyed maps. A deliberate shape-class
// violation.
func (c *Corruptor) wrongTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for key, value := range val {
			switch inner := value.(type) {
			case string:
				if n, err := strconv.Atoi(inner); err == nil {
					val[key] = n
				}
			case int:
				val[key] = strconv.Itoa(inner)
			case int64:
				val[key] = strconv.FormatInt(inner, 10)
			case bool:
				if inner {
					val[key] = 1
				} else {
					val[key] = 0
				}
			case []any:
				if len(inner) == 1 {
					val[key] = inner[0]
				}
			}
		}
		return val
	case []any:
		indexed := make(map[string]any, len(val))
		for i, item := range val {
			indexed[strconv.Itoa(i)] = item
		}
		return indexed
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		chars := make([]any, 0, len(val))
		for _, r := range val {
			chars = append(chars, string(r))
		}
		return chars
	default:
		return val
	}
}

// brokenReferences appends a corruption marker to any value whose key looks
// like an identifier or reference, recursing into nested maps.
func (c *Corruptor) brokenReferences(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for key, value := range m {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "id") || strings.Contains(lower, "ref") {
			if s, isStr := value.(string); isStr {
				m[key] = s + "_CORRUPTED"
				continue
			}
		}
		if nested, isMap := value.(map[string]any); isMap {
			m[key] = c.brokenReferences(nested)
		}
	}
	return m
}

// truncatedData models an interrupted write: strings cut at a random
// interior point, lists lose a random suffix, maps lose a random subset of
// keys.
func (c *Corruptor) truncatedData(v any) any {
	switch val := v.(type) {
	case string:
		runes := []rune(val)
		if len(runes) <= 20 {
			return val
		}
		cut := 10 + c.rng.Intn(len(runes)-20)
		return string(runes[:cut])
	case []any:
		if len(val) <= 3 {
			return val
		}
		cut := 1 + c.rng.Intn(len(val)-1)
		return val[:cut]
	case map[string]any:
		if len(val) <= 2 {
			return val
		}
		keep := 1 + c.rng.Intn(len(val)-1)
		kept := make(map[string]any, keep)
		for _, key := range c.sampleKeys(val, keep) {
			kept[key] = val[key]
		}
		return kept
	default:
		return val
	}
}

// duplicateEntries appends 1-2 copies of existing list elements, or shadows
// map keys with duplicate and conflicting variants.
func (c *Corruptor) duplicateEntries(v any) any {
	switch val := v.(type) {
	case []any:
		if len(val) == 0 {
			return val
		}
		n := 2
		if len(val) < n {
			n = len(val)
		}
		for _, idx := range c.sampleIndices(len(val), n) {
			val = append(val, deepCopy(val[idx]))
		}
		return val
	case map[string]any:
		keys := sortedKeys(val)
		if len(keys) > 2 {
			keys = keys[:2]
		}
		for _, key := range keys {
			val[key+"_duplicate"] = deepCopy(val[key])
			if s, ok := val[key].(string); ok {
				val[key+"_conflict"] = "CONFLICTING_" + s
			}
		}
		return val
	default:
		return val
	}
}

// timestampSkew shifts numeric time fields by a large random offset and
// prefixes string ones with an invalid-date marker.
func (c *Corruptor) timestampSkew(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for key, value := range m {
		if !matchesAny(key, timestampKeys) {
			continue
		}
		switch ts := value.(type) {
		case int:
			m[key] = ts + c.rng.Intn(2000001) - 1000000
		case int64:
			m[key] = ts + int64(c.rng.Intn(2000001)-1000000)
		case float64:
			m[key] = ts + float64(c.rng.Intn(2000001)-1000000)
		case string:
			m[key] = "INVALID_DATE_" + ts
		}
	}
	return m
}

// encodingErrors replaces a small random subset of characters with the
// Unicode replacement glyph.
func (c *Corruptor) encodingErrors(v any) any {
	switch val := v.(type) {
	case string:
		return c.mangleRunes(val, 3)
	case map[string]any:
		for key, value := range val {
			if s, ok := value.(string); ok && len([]rune(s)) > 5 {
				val[key] = c.mangleRunes(s, 2)
			}
		}
		return val
	default:
		return val
	}
}

// mangleRunes swaps up to n random runes of s for the replacement glyph.
func (c *Corruptor) mangleRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	if n > len(runes) {
		n = len(runes)
	}
	for _, idx := range c.sampleIndices(len(runes), n) {
		runes[idx] = '�'
	}
	return string(runes)
}

// schemaViolations injects unexpected sentinel keys and deletes one key
// whose name suggests a required field.
func (c *Corruptor) schemaViolations(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	var requiredLooking []string
	for _, key := range sortedKeys(m) {
		if matchesAny(key, []string{"id", "name", "type"}) {
			requiredLooking = append(requiredLooking, key)
		}
	}

	m["__CORRUPTED_FIELD__"] = "UNEXPECTED_DATA"
	m["__INVALID_KEY__"] = map[string]any{"nested": "corruption"}
	if len(requiredLooking) > 0 {
		delete(m, requiredLooking[c.rng.Intn(len(requiredLooking))])
	}
	return m
}

// partialWrites adds an incomplete-marker substructure and nulls out a
// subset of existing values.
func (c *Corruptor) partialWrites(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	existing := sortedKeys(m)
	m["__INCOMPLETE__"] = map[string]any{"partial": true, "data": nil}

	n := 2
	if len(existing) < n {
		n = len(existing)
	}
	for _, idx := range c.sampleIndices(len(existing), n) {
		m[existing[idx]] = nil
	}
	return m
}

// sampleKeys picks n distinct keys uniformly, iterating in sorted order so
// the draw depends only on the random source.
func (c *Corruptor) sampleKeys(m map[string]any, n int) []string {
	keys := sortedKeys(m)
	picked := c.sampleIndices(len(keys), n)
	out := make([]string, 0, len(picked))
	for _, idx := range picked {
		out = append(out, keys[idx])
	}
	return out
}

// sampleIndices picks n distinct indices from [0, total).
func (c *Corruptor) sampleIndices(total, n int) []int {
	if n > total {
		n = total
	}
	perm := c.rng.Perm(total)
	return perm[:n]
}

// third returns max(1, n/3).
func third(n int) int {
	if n <= 3 {
		return 1
	}
	return n / 3
}

// matchesAny reports whether the lowercase key contains any fragment.
func matchesAny(key string, fragments []string) bool {
	lower := strings.ToLower(key)
	for _, frag := range fragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// sortedKeys returns m's keys in sorted order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// deepCopy clones a tree-shaped value. Scalars are returned as-is.
func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, value := range val {
			out[key] = deepCopy(value)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return val
	}
}

package cli

import (
	"fmt"
	"io"
	"strings"
)

// KV renders aligned key-value pairs. Created via Output.KV().
type KV struct {
	out   *Output
	meta  Meta
	pairs []kvPair
}

type kvPair struct {
	key   string
	value any
}

// Set adds a key-value pair. Value can be any type.
func (k *KV) Set(key string, value any) *KV {
	k.pairs = append(k.pairs, kvPair{key: key, value: value})
	return k
}

// Render outputs the key-value pairs in the configured format.
func (k *KV) Render() error {
	return k.out.Render(k)
}

// Meta returns the metadata.
func (k *KV) Meta() Meta {
	return k.meta
}

// RenderText writes aligned key: value pairs.
func (k *KV) RenderText(w io.Writer) error {
	if len(k.pairs) == 0 {
		return nil
	}

	width := 0
	for _, p := range k.pairs {
		if len(p.key) > width {
			width = len(p.key)
		}
	}

	for _, p := range k.pairs {
		key := k.out.styles.key.Render(p.key + ":")
		pad := strings.Repeat(" ", width-len(p.key)+1)
		if _, err := fmt.Fprintf(w, "%s%s%s\n", key, pad, formatValue(p.value)); err != nil {
			return err
		}
	}
	return nil
}

// RenderJSON returns the pairs as an object.
func (k *KV) RenderJSON() any {
	result := make(map[string]any, len(k.pairs))
	for _, p := range k.pairs {
		result[toJSONKey(p.key)] = p.value
	}
	return result
}

// toJSONKey converts a display key like "Target Type" to target_type.
func toJSONKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), " ", "_")
}

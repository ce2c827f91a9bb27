package ld

import "strings"

// CanonicalContext is the JSON-LD @context constant every HyprCAT
// document binds, either inline or by reference.
const CanonicalContext = "https://www.hyprcat.dev/ns/v1"

// prefixes is the fixed namespace table used to expand and compact IRIs.
// It is process-wide and initialized once; callers never mutate it.
var prefixes = map[string]string{
	"hydra":   "http://www.w3.org/ns/hydra/core#",
	"schema":  "https://schema.org/",
	"x402":    "https://www.hyprcat.dev/ns/x402#",
	"czero":   "https://www.hyprcat.dev/ns/czero#",
	"prov":    "http://www.w3.org/ns/prov#",
	"did":     "https://www.w3.org/ns/did#",
	"vc":      "https://www.w3.org/2018/credentials#",
	"odrl":    "http://www.w3.org/ns/odrl/2/",
	"hyprcat": "https://www.hyprcat.dev/ns/v1#",
}

// ExpandIRI translates a prefixed form (hydra:Collection) into its fully
// qualified IRI using the fixed namespace table. Values without a known
// prefix are returned unchanged.
func ExpandIRI(compact string) string {
	idx := strings.Index(compact, ":")
	if idx < 0 {
		return compact
	}
	prefix, suffix := compact[:idx], compact[idx+1:]
	if ns, ok := prefixes[prefix]; ok {
		return ns + suffix
	}
	return compact
}

// CompactIRI translates a fully qualified IRI back into prefixed form
// when a matching namespace is registered; otherwise it is returned
// unchanged.
func CompactIRI(full string) string {
	for prefix, ns := range prefixes {
		if strings.HasPrefix(full, ns) {
			return prefix + ":" + strings.TrimPrefix(full, ns)
		}
	}
	return full
}

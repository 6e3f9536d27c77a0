// Package pathmap parses and applies the respond stage's file-component
// path-mapping rules (§6): rewriting a sandbox-internal path to the path a
// platform adapter can actually read from before a File component is sent.
package pathmap

import "strings"

// Rule is one parsed "FROM:TO" mapping.
type Rule struct {
	From string
	To   string
}

// ParseRules parses each raw string as a FROM:TO rule. A rule may contain
// more than one ':' (Windows drive letters, e.g. "C:\data:/mnt/data"); the
// split point is the LAST ':' unless that leaves either side empty, in
// which case the FIRST ':' is used instead.
func ParseRules(raw []string) []Rule {
	rules := make([]Rule, 0, len(raw))
	for _, r := range raw {
		rule, ok := parseRule(r)
		if ok {
			rules = append(rules, rule)
		}
	}
	return rules
}

func parseRule(raw string) (Rule, bool) {
	idx := strings.LastIndex(raw, ":")
	if idx <= 0 || idx >= len(raw)-1 {
		idx = strings.Index(raw, ":")
	}
	if idx <= 0 || idx >= len(raw)-1 {
		return Rule{}, false
	}
	return Rule{From: raw[:idx], To: raw[idx+1:]}, true
}

// Apply rewrites path using the first rule whose From is a prefix of path,
// normalizing the remainder's separators to the target's style. Returns
// path unchanged if no rule matches.
func Apply(rules []Rule, path string) string {
	for _, rule := range rules {
		if strings.HasPrefix(path, rule.From) {
			rest := strings.TrimPrefix(path, rule.From)
			sep := "/"
			if strings.Contains(rule.To, "\\") {
				sep = "\\"
			}
			rest = strings.ReplaceAll(rest, "\\", "/")
			rest = strings.ReplaceAll(rest, "/", sep)
			return strings.TrimSuffix(rule.To, sep) + sep + strings.TrimPrefix(rest, sep)
		}
	}
	return path
}

package navigator

import (
	"net/url"
	"strings"
)

// ExpandTemplate implements the small URI-Template subset the
// hypermedia surface needs: positional {x} substitution and the query
// form {?x,y,z} with comma-group expansion. A variable with no
// matching entry in vars is elided rather than substituted literally.
func ExpandTemplate(template string, vars map[string]string) string {
	var out strings.Builder
	i := 0
	for i < len(template) {
		open := strings.IndexByte(template[i:], '{')
		if open < 0 {
			out.WriteString(template[i:])
			break
		}
		out.WriteString(template[i : i+open])
		close := strings.IndexByte(template[i+open:], '}')
		if close < 0 {
			out.WriteString(template[i+open:])
			break
		}
		expr := template[i+open+1 : i+open+close]
		out.WriteString(expandExpr(expr, vars))
		i = i + open + close + 1
	}
	return out.String()
}

func expandExpr(expr string, vars map[string]string) string {
	if strings.HasPrefix(expr, "?") {
		return expandQueryForm(expr[1:], vars)
	}
	if value, ok := vars[expr]; ok {
		return url.QueryEscape(value)
	}
	return ""
}

func expandQueryForm(names string, vars map[string]string) string {
	var parts []string
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if value, ok := vars[name]; ok {
			parts = append(parts, name+"="+url.QueryEscape(value))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "?" + strings.Join(parts, "&")
}

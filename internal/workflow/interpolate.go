package workflow

import "strings"

// Interpolate substitutes ${VAR} occurrences in tmpl with vars, leaving
// unknown variables untouched. This is the minimal substitution needed
// for setup-task output and the kickoff template; full workflow-file
// templating is out of the core's scope.
func Interpolate(tmpl string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(tmpl, "${") {
		return tmpl
	}
	var b strings.Builder
	i := 0
	for i < len(tmpl) {
		start := strings.Index(tmpl[i:], "${")
		if start < 0 {
			b.WriteString(tmpl[i:])
			break
		}
		start += i
		b.WriteString(tmpl[i:start])
		end := strings.IndexByte(tmpl[start:], '}')
		if end < 0 {
			b.WriteString(tmpl[start:])
			break
		}
		end += start
		name := tmpl[start+2 : end]
		if v, ok := vars[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(tmpl[start : end+1])
		}
		i = end + 1
	}
	return b.String()
}

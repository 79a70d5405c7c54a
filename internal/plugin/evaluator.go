package plugin

import (
	"fmt"
	"regexp"
	"strings"

	"git.home.luguber.info/nixcloud/pankat/internal/article"
	"git.home.luguber.info/nixcloud/pankat/internal/perrors"
)

// directivePattern matches [[!name]] or [[!name args]], non-greedy on args so
// each occurrence stops at its own closing "]]" rather than the last one in
// the document. The (?s) flag lets args span multiple lines, which is what
// makes the newline-in-argument failure mode (below) observable at all.
var directivePattern = regexp.MustCompile(`(?s)\[\[!(\w+)(?:[ \t]+(.*?))?\]\]`)

// Evaluate scans body for every non-overlapping [[!name args]] occurrence in
// left-to-right order, invokes the matching directive from reg against rec,
// and returns the rewritten body. Directives that fail (unknown name,
// invalid argument, or a directive-specific error) are left literally in
// place in the output; their errors are collected and returned alongside
// the rewritten body so the caller can log them, but they never abort the
// scan or leave the document partially rewritten.
//
// The replacement walk keeps a single cursor (last) advanced monotonically
// past each match, so the pre-match slice for a given match is only ever
// copied into the output once, even on the final iteration.
func Evaluate(reg *Registry, body string, rec *article.Record) (string, []error) {
	matches := directivePattern.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return body, nil
	}

	var out strings.Builder
	var errs []error
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		name := body[m[2]:m[3]]
		arg := ""
		if m[4] >= 0 {
			arg = strings.TrimSpace(body[m[4]:m[5]])
		}

		out.WriteString(body[last:start])

		replacement, err := apply(reg, name, arg, rec)
		if err != nil {
			errs = append(errs, err)
			out.WriteString(body[start:end]) // leave the failing directive literally in place
		} else {
			out.WriteString(replacement)
		}
		last = end
	}
	out.WriteString(body[last:])
	return out.String(), errs
}

func apply(reg *Registry, name, arg string, rec *article.Record) (string, error) {
	if strings.ContainsAny(arg, "\n\t") {
		return "", perrors.DirectiveError(fmt.Sprintf("directive %q has invalid argument (contains newline or tab)", name)).
			WithContext("directive", name).
			WithContext("arg", arg).
			Build()
	}

	d, ok := reg.Get(name)
	if !ok {
		return "", perrors.DirectiveError(fmt.Sprintf("unknown directive %q", name)).
			WithContext("directive", name).
			Build()
	}

	replacement, err := d(arg, rec)
	if err != nil {
		return "", perrors.WrapError(err, perrors.CategoryDirective, fmt.Sprintf("directive %q failed", name)).
			Warning().
			WithContext("directive", name).
			WithContext("arg", arg).
			Build()
	}
	return replacement, nil
}

package values

import "strings"

type param struct {
	name, value string
}

// contentLine is a single unfolded line split into its name, parameters and
// value: NAME *(";" PARAM "=" VALUE) ":" CONTENT.
type contentLine struct {
	name    string
	params  []param
	content string
}

func splitContentLine(line string) (contentLine, error) {
	var cl contentLine
	end := strings.IndexAny(line, ";:")
	if end <= 0 {
		return cl, &ParseError{Kind: ErrMalformedLine, Line: line}
	}
	cl.name = strings.ToUpper(strings.TrimSpace(line[:end]))

	rest := line[end:]
	for rest[0] == ';' {
		rest = rest[1:]
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return cl, &ParseError{Kind: ErrMalformedLine, Line: line, Fragment: rest}
		}
		name := strings.ToUpper(rest[:eq])
		rest = rest[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) {
			closing := strings.IndexByte(rest[1:], '"')
			if closing < 0 {
				return cl, &ParseError{Kind: ErrMalformedLine, Line: line, Fragment: rest, Reason: "unterminated quote"}
			}
			value = rest[1 : closing+1]
			rest = rest[closing+2:]
		} else {
			stop := strings.IndexAny(rest, ";:")
			if stop < 0 {
				return cl, &ParseError{Kind: ErrMalformedLine, Line: line, Reason: "missing ':'"}
			}
			value = rest[:stop]
			rest = rest[stop:]
		}
		cl.params = append(cl.params, param{name: name, value: value})
		if rest == "" {
			return cl, &ParseError{Kind: ErrMalformedLine, Line: line, Reason: "missing ':'"}
		}
	}
	if rest[0] != ':' {
		return cl, &ParseError{Kind: ErrMalformedLine, Line: line, Fragment: rest}
	}
	cl.content = rest[1:]
	return cl, nil
}

func isXName(name string) bool {
	return len(name) > 2 && strings.EqualFold(name[:2], "X-")
}

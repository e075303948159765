package respcache

import (
	"fmt"
	"net/url"
	"strings"
)

// Params supplies placeholder values for a Pattern.
type Params map[string]any

// Pattern is a key template such as "request_async_asr__{key}.json".
type Pattern string

// Key fills every {name} placeholder from params. String values are URL path
// escaped so the key is always a single safe file name; other values are
// formatted with %v. A placeholder without a parameter is an error.
func (p Pattern) Key(params Params) (string, error) {
	src := string(p)
	var b strings.Builder
	b.Grow(len(src) + 16)
	for {
		open := strings.IndexByte(src, '{')
		if open < 0 {
			b.WriteString(src)
			break
		}
		end := strings.IndexByte(src[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("respcache: pattern %q: unterminated placeholder", string(p))
		}
		end += open
		name := src[open+1 : end]
		if name == "" {
			return "", fmt.Errorf("respcache: pattern %q: empty placeholder", string(p))
		}
		value, ok := params[name]
		if !ok {
			return "", fmt.Errorf("respcache: pattern %q: missing parameter %q", string(p), name)
		}
		b.WriteString(src[:open])
		b.WriteString(formatParam(value))
		src = src[end+1:]
	}
	return b.String(), nil
}

func formatParam(value any) string {
	switch v := value.(type) {
	case string:
		return url.PathEscape(v)
	case fmt.Stringer:
		return url.PathEscape(v.String())
	default:
		return fmt.Sprintf("%v", v)
	}
}

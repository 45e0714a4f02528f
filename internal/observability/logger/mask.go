package logger

import "strings"

// Keys whose values are masked wherever they appear in logged payloads.
// Vendor credentials are admin-supplied API keys and session cookies, so
// the list leans toward those shapes.
var sensitiveKeys = map[string]struct{}{
	"password":       {},
	"token":          {},
	"api_key":        {},
	"apikey":         {},
	"secret":         {},
	"authorization":  {},
	"cookie":         {},
	"session_cookie": {},
	"admin_api_key":  {},
}

func maskLast4(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****" + v
	}
	return "****" + v[len(v)-4:]
}

// MaskAuthorization masks an Authorization header value, preserving the
// scheme so log readers can still tell Bearer from Basic.
func MaskAuthorization(v string) string {
	scheme, token, ok := strings.Cut(v, " ")
	if !ok {
		return maskLast4(v)
	}
	return scheme + " " + maskLast4(token)
}

// MaskCookie masks every value in a Cookie header while keeping cookie
// names readable.
func MaskCookie(v string) string {
	parts := strings.Split(v, ";")
	for i, part := range parts {
		trimmed := strings.TrimSpace(part)
		name, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			parts[i] = trimmed
			continue
		}
		parts[i] = name + "=" + maskLast4(value)
	}
	return strings.Join(parts, "; ")
}

// MaskJSON returns a copy of the payload with sensitive string values
// masked, recursing into nested objects.
func MaskJSON(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case map[string]any:
			out[k] = MaskJSON(val)
		case string:
			if _, sensitive := sensitiveKeys[strings.ToLower(k)]; sensitive {
				out[k] = maskLast4(val)
			} else {
				out[k] = val
			}
		default:
			out[k] = v
		}
	}
	return out
}

// MaskCredentials masks every value in a decrypted vendor credential map.
// Credential values are secrets without exception, so no key allowlist
// applies here.
func MaskCredentials(creds map[string]string) map[string]string {
	out := make(map[string]string, len(creds))
	for k, v := range creds {
		out[k] = maskLast4(v)
	}
	return out
}

package server

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// ParseBody decodes a write-route body into command parameters. Two shapes
// are accepted: a JSON object, or key=value&key=value URL-encoded pairs
// whose values are opportunistically typed integer, then boolean, then
// string. Anything undecodable yields an empty parameter map; the command
// layer reports the missing parameters.
func ParseBody(body []byte) map[string]any {
	params := make(map[string]any)
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return params
	}
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &params); err != nil {
			return make(map[string]any)
		}
		return params
	}
	values, err := url.ParseQuery(string(trimmed))
	if err != nil {
		return params
	}
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		params[key] = typedValue(vals[0])
	}
	return params
}

func typedValue(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

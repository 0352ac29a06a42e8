package util

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// JWSToText renders a compact JWS as indented JSON for debug pages and
// logs. The signature is truncated; nothing is verified here.
func JWSToText(jwsData string) string {
	parts := strings.Split(jwsData, ".")
	if len(parts) != 3 {
		return jwsData
	}

	sb := strings.Builder{}
	sb.WriteString("header: ")
	sb.WriteString(partToText(parts[0]))
	sb.WriteString("\npayload: ")
	sb.WriteString(partToText(parts[1]))
	sb.WriteString("\nsignature: ")
	if len(parts[2]) > 10 {
		sb.WriteString(parts[2][:10] + "...")
	} else {
		sb.WriteString(parts[2])
	}
	return sb.String()
}

func partToText(s string) string {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return err.Error()
	}

	data := make(map[string]interface{})
	if err := json.Unmarshal(raw, &data); err != nil {
		return string(raw)
	}

	pretty, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(pretty)
}

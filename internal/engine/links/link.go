package links

import (
	"bytes"
	"encoding/json"
)

// Link is a short code and the long URL it redirects to.
// On disk it is stored as {"url": ..., "ts": ...} keyed by code.
type Link struct {
	Code      string `json:"-"`
	URL       string `json:"url"`
	CreatedAt int64  `json:"ts"`
}

// UnmarshalJSON also accepts the legacy format where the value is the bare URL string.
func (l *Link) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var url string
		if err := json.Unmarshal(data, &url); err != nil {
			return err
		}
		*l = Link{Code: l.Code, URL: url}
		return nil
	}

	type record Link
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	r.Code = l.Code
	*l = Link(r)
	return nil
}

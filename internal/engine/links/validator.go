package links

import (
	"net/url"
	"strings"

	"qrlink/internal/pkg/errors"
)

const maxURLLength = 2048

func ValidateURL(raw string) error {
	const op = "links.ValidateURL"

	if strings.TrimSpace(raw) == "" {
		return errors.Newf(errors.InvalidInput, op, "url is required")
	}
	if len(raw) > maxURLLength {
		return errors.Newf(errors.InvalidInput, op, "url is too long")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return errors.Newf(errors.InvalidInput, op, "invalid url format")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Newf(errors.InvalidInput, op, "url must start with http:// or https://")
	}
	if u.Host == "" {
		return errors.Newf(errors.InvalidInput, op, "url must include a host")
	}
	return nil
}

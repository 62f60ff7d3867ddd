package providers

import (
	"strconv"
	"strings"

	"github.com/guregu/null/v6"
)

func parseVendorFloat(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return f
}

func parseVendorVolume(value string) null.Int {
	value = strings.TrimSpace(value)
	if value == "" {
		return null.Int{}
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return null.Int{}
	}
	return null.IntFrom(v)
}

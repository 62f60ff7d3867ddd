package importer

import (
	"strconv"
	"strings"

	"github.com/guregu/null/v6"
)

func parseReportFloat(value string) float64 {
	value = strings.ReplaceAll(value, ",", "")
	if value == "" || value == "-" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseReportVolume(value string) null.Int {
	value = strings.ReplaceAll(value, ",", "")
	if value == "" || value == "-" {
		return null.Int{}
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return null.Int{}
	}
	return null.IntFrom(v)
}

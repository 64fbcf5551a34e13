package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
)

// parseYearMonth extracts year and month from query parameters, falling
// back to the current year and month.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			month = m
		}
	}

	return year, month
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(dateStr string) (core.Date, error) {
	parsedTime, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: parsedTime}, nil
}

// formatPesos formats centavos as a peso currency string (e.g. "₱12.34").
func formatPesos(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	pesos := cents / 100
	rem := cents % 100
	s := strconv.FormatInt(pesos, 10) + "." + fmt.Sprintf("%02d", rem)
	if neg {
		return "-₱" + s
	}
	return "₱" + s
}

// pathID extracts the trailing numeric id from a path like
// /api/transactions/42.
func pathID(path, prefix string) (int64, error) {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	return strconv.ParseInt(rest, 10, 64)
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

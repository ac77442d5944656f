package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptyClock   = errors.New("empty clock time")
	ErrInvalidClock = errors.New("invalid clock time")
	ErrInvalidDay   = errors.New("invalid calendar day")
)

// HHMM is a local wall-clock time of day in the canonical "15:04" form.
type HHMM string

// ParseHHMM parses "H:MM" or "HH:MM" into the canonical zero-padded form.
func ParseHHMM(s string) (HHMM, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyClock
	}
	mins, err := parseHHMM(s)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidClock, s, err)
	}
	return HHMM(FormatMinutes(mins)), nil
}

// ParseHHMMList parses a reminder list, dropping duplicates and keeping order.
func ParseHHMMList(in []string) ([]HHMM, error) {
	out := make([]HHMM, 0, len(in))
	seen := make(map[HHMM]struct{}, len(in))
	for _, s := range in {
		c, err := ParseHHMM(s)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

func parseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, errors.New("expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, errors.New("invalid hour")
	}
	if len(parts[1]) != 2 {
		return 0, errors.New("invalid minute")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, errors.New("invalid minute")
	}
	return h*60 + m, nil
}

// ValidateTZ checks that the tz is a valid IANA location.
func ValidateTZ(tz string) (string, error) {
	if strings.TrimSpace(tz) == "" {
		return "", errors.New("empty timezone")
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", err
	}
	return loc.String(), nil
}

// FormatMinutes returns HH:MM for minutes since midnight (00:00..23:59).
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	h := mins / 60
	m := mins % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

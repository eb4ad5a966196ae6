package app

import (
	"net/url"
	"strconv"
	"strings"

	"checkin-companion/internal/models"
)

// NavigatorFunc adapts a function to gate.Navigator
type NavigatorFunc func(path string)

// Navigate calls f(path)
func (f NavigatorFunc) Navigate(path string) {
	f(path)
}

// ParseProfilePath reverses models.ProfilePath
func ParseProfilePath(path string) (int64, models.ScanContext, bool) {
	u, err := url.Parse(path)
	if err != nil {
		return 0, models.ScanContext{}, false
	}
	rest, ok := strings.CutPrefix(strings.TrimPrefix(u.Path, "/"), "profile/")
	if !ok {
		return 0, models.ScanContext{}, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, models.ScanContext{}, false
	}

	var from models.ScanContext
	q := u.Query()
	if v := q.Get(string(models.TargetSession)); v != "" {
		from = models.ScanContext{TargetID: v, TargetKind: models.TargetSession}
	} else if v := q.Get(string(models.TargetEvent)); v != "" {
		from = models.ScanContext{TargetID: v, TargetKind: models.TargetEvent}
	}
	return id, from, true
}

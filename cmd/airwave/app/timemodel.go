package app

import (
	"net/http"
	"strconv"
	"time"
)

// requestNowMS returns the request's wall-clock time in milliseconds.
// ?nowMS=... overrides the clock for testing; overridden reports
// whether the override was present.
func requestNowMS(r *http.Request) (nowMS int, overridden bool, err error) {
	v := r.URL.Query().Get("nowMS")
	if v == "" {
		return int(time.Now().UnixMilli()), false, nil
	}
	nowMS, err = strconv.Atoi(v)
	if err != nil || nowMS < 0 {
		return 0, true, errBadNowMS
	}
	return nowMS, true, nil
}

// previous3am returns the most recent 03:00 boundary at or before t
// in the given location.
func previous3am(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	boundary := time.Date(lt.Year(), lt.Month(), lt.Day(), 3, 0, 0, 0, loc)
	if lt.Before(boundary) {
		boundary = boundary.AddDate(0, 0, -1)
	}
	return boundary
}

// next3am returns the first 03:00 boundary after t in the given
// location.
func next3am(t time.Time, loc *time.Location) time.Time {
	return previous3am(t, loc).AddDate(0, 0, 1)
}

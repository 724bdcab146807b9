package http

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

var errEmptyBody = errors.New("request body is empty")

// decodeJSON decodes the request body into dst, rejecting unknown fields and
// trailing data.
func decodeJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil {
		return errEmptyBody
	}
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if decoder.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// parseDateTime accepts the supported datetime layouts. Layouts without an
// offset are read in loc.
func parseDateTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateTimeLayouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, value); err == nil {
				return t.In(loc), nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unsupported datetime format")
}

// parseDate reads a calendar date at midnight in loc.
func parseDate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(value), loc)
}

type weekQuery struct {
	Date string `form:"date"`
}

// weekReference returns the date named by the date query parameter, or now
// when it is absent.
func weekReference(c *gin.Context, loc *time.Location, now func() time.Time) (time.Time, error) {
	var q weekQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return time.Time{}, invalidField("date")
	}
	if strings.TrimSpace(q.Date) == "" {
		return now().In(loc), nil
	}
	if t, err := parseDate(q.Date, loc); err == nil {
		return t, nil
	}
	if t, err := parseDateTime(q.Date, loc); err == nil {
		return t, nil
	}
	return time.Time{}, invalidField("date")
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

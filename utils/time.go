package utils

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const dateOnlyFormat = "2006-01-02"

// ToTime converts the loosely-typed timestamps carried by provider events
// (unix seconds as string, int or float) into a UTC time.
func ToTime(timestamp any) Result[time.Time] {
	var seconds int64
	var nanoseconds int64

	switch timestamp := timestamp.(type) {
	case string:
		floatTimestamp, err := strconv.ParseFloat(timestamp, 64)
		if err != nil {
			return FailedResult[time.Time](err)
		}

		seconds = int64(floatTimestamp)
		nanoseconds = int64((floatTimestamp - float64(seconds)) * 1e9)

	case int:
		seconds = int64(timestamp)
		nanoseconds = 0

	case int64:
		seconds = timestamp
		nanoseconds = 0

	case float64:
		seconds = int64(timestamp)
		nanoseconds = int64((timestamp - float64(seconds)) * 1e9)

	default:
		return FailedResult[time.Time](fmt.Errorf("Unsupported timestamp type: %T", timestamp))
	}

	return SuccessResult(time.Unix(seconds, nanoseconds).In(time.UTC).Truncate(time.Millisecond))
}

// CustomTime accepts the date shapes the payment provider uses: date-only
// strings for due dates, second-precision timestamps for everything else.
type CustomTime time.Time

func (ct *CustomTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" || s == "null" {
		return nil
	}

	for _, layout := range []string{dateOnlyFormat, "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			*ct = CustomTime(t)
			return nil
		}
	}

	// value could be a unix timestamp encoded as a string
	timeResult := ToTime(s)
	if timeResult.Failure() {
		return fmt.Errorf("unable to parse time value: %s", s)
	}

	*ct = CustomTime(timeResult.Value())
	return nil
}

func (ct CustomTime) MarshalJSON() ([]byte, error) {
	t := time.Time(ct)
	if t.IsZero() {
		return []byte("null"), nil
	}

	return json.Marshal(t.Format(dateOnlyFormat))
}

func (ct CustomTime) Time() time.Time {
	return time.Time(ct)
}

func (ct CustomTime) IsZero() bool {
	return ct.Time().IsZero()
}

func (ct CustomTime) String() string {
	return ct.Time().Format(dateOnlyFormat)
}

// NullTime is a nullable timestamp column that marshals to an ISO-8601
// string, or null when unset.
type NullTime struct {
	sql.NullTime
}

func (nt *NullTime) Scan(value interface{}) error {
	return nt.NullTime.Scan(value)
}

func (nt NullTime) Value() (driver.Value, error) {
	return nt.NullTime.Value()
}

func (nt NullTime) MarshalJSON() ([]byte, error) {
	if !nt.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(nt.Time.UTC().Format(time.RFC3339))
}

func (nt *NullTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		nt.Valid = false
		return nil
	}

	var timestampStr string
	if err := json.Unmarshal(data, &timestampStr); err != nil {
		return err
	}

	if timestampStr == "" {
		nt.Valid = false
		return nil
	}

	for _, layout := range []string{time.RFC3339, dateOnlyFormat} {
		if t, err := time.Parse(layout, timestampStr); err == nil {
			nt.Time = t
			nt.Valid = true
			return nil
		}
	}

	return fmt.Errorf("unable to parse timestamp string: %s", timestampStr)
}

func NewNullTime(t time.Time) NullTime {
	return NullTime{
		NullTime: sql.NullTime{
			Time:  t,
			Valid: true,
		},
	}
}

func NowNullTime() NullTime {
	return NewNullTime(time.Now())
}

// Copyright 2026 The CQLFHIR Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package datehelpers parses and renders CQL/FHIRPath Date, DateTime and Time literals, and the
// closely related FHIR JSON date/dateTime/time primitive strings, tracking precision explicitly
// rather than back-filling unknown components (spec §9, "Precision as a first-class attribute").
package datehelpers

import (
	"errors"
	"fmt"
	regex "regexp"
	"strconv"
	"strings"
	"time"

	"github.com/clinical-lang/cqlfhir/model"
	"github.com/clinical-lang/cqlfhir/types"
)

// Layout constants for the CQL/FHIR subset of ISO-8601 used by this package.
var (
	dateYear  = "2006"
	dateMonth = "2006-01"
	dateDay   = "2006-01-02"

	dateTimeYear             = "2006T"
	dateTimeMonth            = "2006-01T"
	dateTimeDay              = "2006-01-02T"
	dateTimeHour             = "2006-01-02T15"
	dateTimeMinute           = "2006-01-02T15:04"
	dateTimeSecond           = "2006-01-02T15:04:05"
	dateTimeOneMillisecond   = "2006-01-02T15:04:05.0"
	dateTimeTwoMillisecond   = "2006-01-02T15:04:05.00"
	dateTimeThreeMillisecond = "2006-01-02T15:04:05.000"

	timeHour             = "T15"
	timeMinute           = "T15:04"
	timeSecond           = "T15:04:05"
	timeOneMillisecond   = "T15:04:05.0"
	timeTwoMillisecond   = "T15:04:05.00"
	timeThreeMillisecond = "T15:04:05.000"

	zuluTZ = "Z"
	tzOff  = "-07:00"
)

// ErrUnsupportedPrecision is returned when a precision tag is not one this package knows how to
// format or parse.
var ErrUnsupportedPrecision = errors.New("unsupported precision")

// ParseDate parses a CQL Date literal ("@YYYY[-MM[-DD]]") using evaluationLoc for the location
// component golang's time.Time requires (CQL Dates carry no timezone of their own).
func ParseDate(rawStr string, evaluationLoc *time.Location) (time.Time, model.DateTimePrecision, error) {
	if evaluationLoc == nil {
		return time.Time{}, model.UnsetPrecision, fmt.Errorf("internal error - evaluationLoc must be set when calling ParseDate")
	}
	if len(rawStr) == 0 || rawStr[0] != '@' {
		return time.Time{}, model.UnsetPrecision, fmt.Errorf("internal error - date string %v must start with @", rawStr)
	}
	str := rawStr[1:]

	candidates := []struct {
		layout    string
		precision model.DateTimePrecision
	}{
		{dateYear, model.Year},
		{dateMonth, model.Month},
		{dateDay, model.Day},
	}
	var err error
	var parsed time.Time
	for _, c := range candidates {
		parsed, err = time.ParseInLocation(c.layout, str, evaluationLoc)
		if err == nil {
			return parsed, c.precision, nil
		}
	}
	if parseErr, ok := err.(*time.ParseError); ok {
		return time.Time{}, model.UnsetPrecision, fmtParsingErr(rawStr, types.Date, "@YYYY-MM-DD", parseErr)
	}
	return time.Time{}, model.UnsetPrecision, err
}

// ParseDateTime parses a CQL DateTime literal ("@YYYY-MM-DDThh:mm:ss.fff(Z|+hh:mm)"). If rawStr
// carries no offset, evaluationLoc is used and hasTimezone is false; per spec §9 a DateTime whose
// timezone is unknown must never silently be treated as UTC by comparisons downstream.
func ParseDateTime(rawStr string, evaluationLoc *time.Location) (t time.Time, precision model.DateTimePrecision, hasTimezone bool, err error) {
	if evaluationLoc == nil {
		return time.Time{}, model.UnsetPrecision, false, fmt.Errorf("internal error - evaluationLoc must be set when calling ParseDateTime")
	}
	if len(rawStr) == 0 || rawStr[0] != '@' {
		return time.Time{}, model.UnsetPrecision, false, fmt.Errorf("internal error - datetime string %v must start with @", rawStr)
	}
	str := rawStr[1:]

	if regex.MustCompile(`\.\d{4,}`).MatchString(rawStr) {
		return time.Time{}, model.UnsetPrecision, false, fmt.Errorf("%v %v can have at most 3 digits of millisecond precision, want a layout like @YYYY-MM-DDThh:mm:ss.fff(Z|(+/-hh:mm))", types.DateTime, rawStr)
	}

	candidates := []struct {
		layout    string
		precision model.DateTimePrecision
	}{
		{dateTimeYear, model.Year},
		{dateTimeMonth, model.Month},
		{dateTimeDay, model.Day},
		{dateTimeHour, model.Hour},
		{dateTimeMinute, model.Minute},
		{dateTimeOneMillisecond, model.Millisecond},
		{dateTimeTwoMillisecond, model.Millisecond},
		{dateTimeThreeMillisecond, model.Millisecond},
		{dateTimeSecond, model.Second},
	}
	var lastErr error
	for _, c := range candidates {
		for _, zone := range []string{zuluTZ, tzOff, ""} {
			loc := evaluationLoc
			if zone == zuluTZ {
				loc = time.UTC
			}
			parsed, perr := time.ParseInLocation(c.layout+zone, str, loc)
			if perr == nil {
				return parsed, c.precision, zone != "", nil
			}
			lastErr = perr
		}
	}
	if parseErr, ok := lastErr.(*time.ParseError); ok {
		return time.Time{}, model.UnsetPrecision, false, fmtParsingErr(rawStr, types.DateTime, "@YYYY-MM-DDThh:mm:ss.fff(Z|(+/-hh:mm))", parseErr)
	}
	return time.Time{}, model.UnsetPrecision, false, lastErr
}

// ParseTime parses a CQL Time literal ("@Thh:mm:ss.fff").
func ParseTime(rawStr string) (time.Time, model.DateTimePrecision, error) {
	if len(rawStr) == 0 || rawStr[0] != '@' {
		return time.Time{}, model.UnsetPrecision, fmt.Errorf("internal error - time string %v must start with @", rawStr)
	}
	str := rawStr[1:]
	if regex.MustCompile(`\.\d{4,}`).MatchString(rawStr) {
		return time.Time{}, model.UnsetPrecision, fmt.Errorf("%v %v can have at most 3 digits of millisecond precision, want a layout like @Thh:mm:ss.fff", types.Time, rawStr)
	}

	candidates := []struct {
		layout    string
		precision model.DateTimePrecision
	}{
		{timeHour, model.Hour},
		{timeMinute, model.Minute},
		{timeOneMillisecond, model.Millisecond},
		{timeTwoMillisecond, model.Millisecond},
		{timeThreeMillisecond, model.Millisecond},
		{timeSecond, model.Second},
	}
	var err error
	var parsed time.Time
	for _, c := range candidates {
		parsed, err = time.ParseInLocation(c.layout, str, time.UTC)
		if err == nil {
			return parsed, c.precision, nil
		}
	}
	if parseErr, ok := err.(*time.ParseError); ok {
		return time.Time{}, model.UnsetPrecision, fmtParsingErr(rawStr, types.Time, "@Thh:mm:ss.fff", parseErr)
	}
	return time.Time{}, model.UnsetPrecision, err
}

// ParseFHIRDateTime parses a raw FHIR JSON "dateTime" primitive string, which is the same ISO-8601
// subset as CQL's DateTime literal minus the leading '@'.
func ParseFHIRDateTime(raw string, evaluationLoc *time.Location) (time.Time, model.DateTimePrecision, bool, error) {
	return ParseDateTime("@"+raw, evaluationLoc)
}

// ParseFHIRDate parses a raw FHIR JSON "date" primitive string.
func ParseFHIRDate(raw string, evaluationLoc *time.Location) (time.Time, model.DateTimePrecision, error) {
	return ParseDate("@"+raw, evaluationLoc)
}

// ParseFHIRTime parses a raw FHIR JSON "time" primitive string.
func ParseFHIRTime(raw string) (time.Time, model.DateTimePrecision, error) {
	return ParseTime("@" + raw)
}

func getLocation(tz string) (*time.Location, error) {
	if tz == "UTC" {
		return time.UTC, nil
	}
	l, err := time.LoadLocation(tz)
	if err == nil {
		return l, nil
	}
	offset, err := offsetToSeconds(tz)
	if err != nil {
		return nil, err
	}
	return time.FixedZone(tz, offset), nil
}

func offsetToSeconds(offset string) (int, error) {
	if offset == "" || offset == "UTC" {
		return 0, nil
	}
	sign := offset[0]
	if sign != '+' && sign != '-' {
		return 0, fmt.Errorf("invalid timezone offset: %v", offset)
	}
	arr := strings.Split(offset[1:], ":")
	if len(arr) != 2 {
		return 0, fmt.Errorf("invalid timezone offset: %v", offset)
	}
	hour, err := strconv.Atoi(arr[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in timezone offset %v: %v", offset, err)
	}
	minute, err := strconv.Atoi(arr[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in timezone offset %v: %v", offset, err)
	}
	if sign == '-' {
		return -hour*3600 - minute*60, nil
	}
	return hour*3600 + minute*60, nil
}

func fmtParsingErr(rawStr string, t types.IType, layout string, e *time.ParseError) error {
	return fmt.Errorf("got %v %v but want a layout like %v%v", t, rawStr, layout, e.Message)
}

// Location resolves an IANA name or numeric offset to a *time.Location, used by the interpreter to
// build its evaluation-timezone once per evaluation.
func Location(tz string) (*time.Location, error) {
	if tz == "" {
		return time.Local, nil
	}
	return getLocation(tz)
}

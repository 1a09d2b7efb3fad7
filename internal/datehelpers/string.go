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

package datehelpers

import (
	"fmt"
	"time"

	"github.com/clinical-lang/cqlfhir/model"
)

// DateString renders d at precision as an ISO-8601 date with no leading '@' and no timezone
// component (CQL Dates are timezone-less). Callers that need the CQL literal form prepend '@'
// themselves.
func DateString(d time.Time, precision model.DateTimePrecision) (string, error) {
	switch precision {
	case model.Year:
		return d.Format(dateYear), nil
	case model.Month:
		return d.Format(dateMonth), nil
	case model.Day:
		return d.Format(dateDay), nil
	default:
		return "", fmt.Errorf("%w: %v is not a valid Date precision", ErrUnsupportedPrecision, precision)
	}
}

// DateTimeString renders d at precision as an ISO-8601 datetime with no leading '@'. When
// hasTimezone is true and precision is Hour or finer, the offset (or 'Z' for UTC) is appended;
// at Year, Month, or Day precision no offset is rendered. When hasTimezone is false the DateTime
// was constructed without a timezone and none is rendered, matching how it was parsed.
func DateTimeString(d time.Time, precision model.DateTimePrecision, hasTimezone bool) (string, error) {
	var layout string
	switch precision {
	case model.Year:
		layout = "2006"
	case model.Month:
		layout = "2006-01"
	case model.Day:
		layout = "2006-01-02"
	case model.Hour:
		layout = "2006-01-02T15"
	case model.Minute:
		layout = "2006-01-02T15:04"
	case model.Second:
		layout = "2006-01-02T15:04:05"
	case model.Millisecond:
		layout = "2006-01-02T15:04:05.000"
	default:
		return "", fmt.Errorf("%w: %v is not a valid DateTime precision", ErrUnsupportedPrecision, precision)
	}
	if hasTimezone && precision != model.Year && precision != model.Month && precision != model.Day {
		layout += "Z07:00"
	}
	return d.Format(layout), nil
}

// TimeString renders d at precision as an ISO-8601 time with no leading '@'.
func TimeString(d time.Time, precision model.DateTimePrecision) (string, error) {
	switch precision {
	case model.Hour:
		return d.Format("15"), nil
	case model.Minute:
		return d.Format("15:04"), nil
	case model.Second:
		return d.Format("15:04:05"), nil
	case model.Millisecond:
		return d.Format("15:04:05.000"), nil
	default:
		return "", fmt.Errorf("%w: %v is not a valid Time precision", ErrUnsupportedPrecision, precision)
	}
}

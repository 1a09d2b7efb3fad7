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

// Package ucum provides UCUM (Unified Code for Units of Measure) support for quantity arithmetic,
// including CQL-date-unit <-> UCUM-unit translation, unit syntax validation, and conversion factors
// between units that share a physical dimension (length, mass, volume, time).
package ucum

import (
	"fmt"
	"strings"
	"sync"
)

// oneUnit is the dimensionless unit "1".
const oneUnit = "1"

// CQLToUCUMDateUnits maps CQL calendar duration keywords to their UCUM equivalents.
var CQLToUCUMDateUnits = map[string]string{
	"years":        "a_g",
	"year":         "a_g",
	"months":       "mo_g",
	"month":        "mo_g",
	"weeks":        "wk",
	"week":         "wk",
	"days":         "d",
	"day":          "d",
	"hours":        "h",
	"hour":         "h",
	"minutes":      "min",
	"minute":       "min",
	"seconds":      "s",
	"second":       "s",
	"milliseconds": "ms",
	"millisecond":  "ms",
}

// UCUMToCQLDateUnits maps UCUM calendar duration units back to CQL keywords.
var UCUMToCQLDateUnits = map[string]string{
	"a":    "year",
	"a_j":  "year",
	"a_g":  "year",
	"mo":   "month",
	"mo_j": "month",
	"mo_g": "month",
	"wk":   "week",
	"d":    "day",
	"h":    "hour",
	"min":  "minute",
	"s":    "second",
	"ms":   "millisecond",
}

// commonUnitFactors holds, for each base unit, the factor that converts one base-unit quantity into
// one unit of the derived unit (e.g. 1 m = 100 cm, so commonUnitFactors["m"]["cm"] == 100).
var commonUnitFactors = map[string]map[string]float64{
	// Length units (base: meter)
	"m": {
		"cm": 100,
		"mm": 1000,
		"km": 0.001,
		"in": 39.3701,
		"ft": 3.28084,
		"yd": 1.09361,
		"mi": 0.000621371,
	},
	// Mass units (base: gram)
	"g": {
		"mg":      1000,
		"kg":      0.001,
		"lb":      0.00220462,
		"oz":      0.03527396,
		"[oz_av]": 0.03527396,
	},
	// Volume units (base: liter)
	"L": {
		"mL":       1000,
		"dL":       10,
		"cL":       100,
		"kL":       0.001,
		"gal":      0.264172,
		"qt":       1.05669,
		"pt":       2.11338,
		"cup":      4.22675,
		"[foz_us]": 33.814,
	},
	// Time units (base: second)
	"s": {
		"min":  1 / 60.0,
		"h":    1 / 3600.0,
		"d":    1 / 86400.0,
		"wk":   1 / 604800.0,
		"mo_g": 1 / 2592000.0, // approximate, 30-day month
		"a_g":  1 / 31536000.0,
		"ms":   1000,
	},
	// Clinical enzyme-activity units (base: enzyme unit U, 1 U = 1 umol substrate/min)
	"U": {
		"mU": 1000,
		"uU": 1000000,
		"nU": 1000000000,
		"kU": 0.001,
	},
	// Clinical osmolality units (base: osmole)
	"osm": {
		"mosm": 1000,
	},
	// Clinical equivalents (base: equivalent)
	"eq": {
		"meq": 1000,
		"ueq": 1000000,
	},
}

// unitValidityCache memoizes the result of validateUCUMSyntax, since the same unit strings recur
// across a single evaluation run's quantity literals.
var unitValidityCache = struct {
	sync.RWMutex
	cache map[string]bool
}{
	cache: make(map[string]bool),
}

// FixEmptyUnit replaces a null/empty unit string with the dimensionless unit "1".
func FixEmptyUnit(unit string) string {
	if unit == "" {
		return oneUnit
	}
	return unit
}

// FixCQLDateUnit translates a CQL calendar duration keyword ("years", "day", ...) into its UCUM
// equivalent, leaving already-UCUM or non-date units unchanged.
func FixCQLDateUnit(unit string) string {
	if ucumUnit, ok := CQLToUCUMDateUnits[unit]; ok {
		return ucumUnit
	}
	return unit
}

// FixUnit applies both FixEmptyUnit and FixCQLDateUnit, the normalization CheckUnit and
// ConvertUnit apply before comparing or converting unit strings.
func FixUnit(unit string) string {
	return FixCQLDateUnit(FixEmptyUnit(unit))
}

// CheckUnit validates a unit string. If allowEmptyUnits is set, an empty string is treated as the
// dimensionless unit. If allowCQLDateUnits is set, CQL calendar duration keywords are accepted and
// translated to UCUM before validation. Returns (true, "") on success, or (false, reason) otherwise.
func CheckUnit(unit string, allowEmptyUnits bool, allowCQLDateUnits bool) (bool, string) {
	if unit == "" {
		if allowEmptyUnits {
			return true, ""
		}
		return false, "empty unit is not allowed"
	}

	if allowEmptyUnits {
		unit = FixEmptyUnit(unit)
	}
	if allowCQLDateUnits {
		unit = FixCQLDateUnit(unit)
	}

	unitValidityCache.RLock()
	valid, found := unitValidityCache.cache[unit]
	unitValidityCache.RUnlock()
	if found {
		if valid {
			return true, ""
		}
		return false, fmt.Sprintf("invalid UCUM unit: %q", unit)
	}

	valid = validateUCUMSyntax(unit)
	unitValidityCache.Lock()
	unitValidityCache.cache[unit] = valid
	unitValidityCache.Unlock()

	if !valid {
		return false, fmt.Sprintf("invalid UCUM unit: %q", unit)
	}
	return true, ""
}

// ConvertUnit converts fromVal, expressed in fromUnit, into the equivalent value expressed in
// toUnit. The conversion factor is a fixed physical-dimension ratio (e.g. 2.54 cm/in); it is applied
// as a float64 multiplier because it is a constant of the unit system, not a user-supplied Decimal
// value, so this does not reintroduce the floating-point-Decimal substitution the rest of the engine
// avoids. Returns an error if no conversion path exists between the two units.
func ConvertUnit(fromVal float64, fromUnit, toUnit string) (float64, error) {
	fromUnit = FixUnit(fromUnit)
	toUnit = FixUnit(toUnit)

	if fromUnit == toUnit {
		return fromVal, nil
	}

	if factor, ok := getConversionFactor(fromUnit, toUnit); ok {
		return fromVal * factor, nil
	}
	return 0, fmt.Errorf("cannot convert from unit %q to unit %q", fromUnit, toUnit)
}

// getConversionFactor determines the multiplier that converts one fromUnit into toUnit.
func getConversionFactor(fromUnit, toUnit string) (float64, bool) {
	if factor, ok := dateConversionFactor(fromUnit, toUnit); ok {
		return factor, true
	}
	for baseUnit, conversions := range commonUnitFactors {
		if factor, ok := measurementConversionFactor(fromUnit, toUnit, baseUnit, conversions); ok {
			return factor, true
		}
	}
	return 0, false
}

func measurementConversionFactor(fromUnit, toUnit, baseUnit string, conversions map[string]float64) (float64, bool) {
	if fromUnit == baseUnit {
		if factor, ok := conversions[toUnit]; ok {
			return factor, true
		}
		return 0, false
	}
	if toUnit == baseUnit {
		if factor, ok := conversions[fromUnit]; ok {
			return 1.0 / factor, true
		}
		return 0, false
	}
	fromFactor, fromOk := conversions[fromUnit]
	toFactor, toOk := conversions[toUnit]
	if fromOk && toOk {
		return toFactor / fromFactor, true
	}
	return 0, false
}

// dateConversionFactor determines the multiplier between two UCUM calendar duration units using
// the fixed CQL duration ratios (1 year = 12 months, 1 day = 24 hours, and so on).
func dateConversionFactor(fromUnit, toUnit string) (float64, bool) {
	fromCQLUnit, fromOk := UCUMToCQLDateUnits[fromUnit]
	toCQLUnit, toOk := UCUMToCQLDateUnits[toUnit]
	if !fromOk || !toOk {
		return 0, false
	}
	if fromCQLUnit == toCQLUnit {
		return 1.0, true
	}
	if factor, ok := dateUnitRatio(fromCQLUnit, toCQLUnit); ok {
		return factor, true
	}
	if factor, ok := dateUnitRatio(toCQLUnit, fromCQLUnit); ok {
		return 1.0 / factor, true
	}
	return 0, false
}

func dateUnitRatio(larger, smaller string) (float64, bool) {
	switch {
	case larger == "year" && smaller == "month":
		return 12.0, true
	case larger == "year" && smaller == "day":
		return 365.25, true
	case larger == "month" && smaller == "day":
		return 30.44, true
	case larger == "day" && smaller == "hour":
		return 24.0, true
	case larger == "hour" && smaller == "minute":
		return 60.0, true
	case larger == "hour" && smaller == "second":
		return 3600.0, true
	case larger == "hour" && smaller == "millisecond":
		return 3600000.0, true
	case larger == "minute" && smaller == "second":
		return 60.0, true
	case larger == "minute" && smaller == "millisecond":
		return 60000.0, true
	case larger == "second" && smaller == "millisecond":
		return 1000.0, true
	default:
		return 0, false
	}
}

// GetProductOfUnits returns the unit that results from multiplying a quantity in unit1 by a
// quantity in unit2 (e.g. "m" * "m" -> "m2", "kg" * "m" -> "kg.m").
func GetProductOfUnits(unit1, unit2 string) string {
	unit1, unit2 = FixEmptyUnit(unit1), FixEmptyUnit(unit2)
	if unit1 == oneUnit {
		return unit2
	}
	if unit2 == oneUnit {
		return unit1
	}
	if unit1 == unit2 {
		return fmt.Sprintf("%s2", unit1)
	}
	return fmt.Sprintf("%s.%s", unit1, unit2)
}

// GetQuotientOfUnits returns the unit that results from dividing a quantity in unit1 by a quantity
// in unit2 (e.g. "m" / "s" -> "m/s", same units cancel to "1").
func GetQuotientOfUnits(unit1, unit2 string) string {
	unit1, unit2 = FixEmptyUnit(unit1), FixEmptyUnit(unit2)
	if unit1 == unit2 {
		return oneUnit
	}
	if unit2 == oneUnit {
		return unit1
	}
	return fmt.Sprintf("%s/%s", unit1, unit2)
}

// validateUCUMSyntax reports whether unit looks like syntactically valid UCUM, recursing through
// "/"-division and "."-multiplication compounds down to atomic units checked against the known unit
// tables. This is not a full UCUM grammar, but it is bounded rather than unconditionally accepting:
// an atomic unit that matches neither a known unit nor a trailing-exponent pattern is rejected.
func validateUCUMSyntax(unit string) bool {
	if unit == "" || unit == oneUnit {
		return true
	}

	for baseUnit, factors := range commonUnitFactors {
		if unit == baseUnit {
			return true
		}
		for derivedUnit := range factors {
			if unit == derivedUnit {
				return true
			}
		}
	}
	for _, ucumUnit := range CQLToUCUMDateUnits {
		if unit == ucumUnit {
			return true
		}
	}

	if strings.Contains(unit, "/") {
		parts := strings.SplitN(unit, "/", 2)
		return validateUCUMSyntax(parts[0]) && validateUCUMSyntax(parts[1])
	}
	if strings.Contains(unit, ".") {
		for _, part := range strings.Split(unit, ".") {
			if !validateUCUMSyntax(part) {
				return false
			}
		}
		return true
	}

	// Trailing digit suffix, e.g. the "2" in "m2" or "cm3".
	if len(unit) > 1 {
		lastChar := unit[len(unit)-1]
		if lastChar >= '0' && lastChar <= '9' {
			return validateUCUMSyntax(unit[:len(unit)-1])
		}
	}

	return false
}

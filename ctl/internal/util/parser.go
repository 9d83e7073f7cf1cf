package util

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dsnet/golib/unitconv"
	"github.com/thinkparq/devctl/common/ioctl"
)

const (
	invalidUnitErrorText = "invalid size format, must be a number followed by a valid SI prefix (k, M, G, T, P, E), IEC prefix (ki, Mi, Gi, Ti, Pi, Ei, Ei), or no prefix for bytes"
)

var siAndIECPrefixMultipliers = map[string]float64{
	"":    1,
	"B":   1,
	"k":   1e3,
	"kB":  1e3,
	"K":   1e3,
	"KB":  1e3,
	"M":   1e6,
	"MB":  1e6,
	"G":   1e9,
	"GB":  1e9,
	"T":   1e12,
	"TB":  1e12,
	"P":   1e15,
	"PB":  1e15,
	"E":   1e18,
	"EB":  1e18,
	"ki":  1 << 10,
	"kiB": 1 << 10,
	"Ki":  1 << 10,
	"KiB": 1 << 10,
	"Mi":  1 << 20,
	"MiB": 1 << 20,
	"Gi":  1 << 30,
	"GiB": 1 << 30,
	"Ti":  1 << 40,
	"TiB": 1 << 40,
	"Pi":  1 << 50,
	"PiB": 1 << 50,
	"Ei":  1 << 60,
	"EiB": 1 << 60,
}

// Parses a string in the form `<number>[kMGTPE][i][B]` into uint64 bytes. This function takes the
// given value and multiplies it according to the given SI suffix, using base 10 (e.g., `10k`
// becomes 10000). When the `[i]` is given, base 2 is used (`10kiB` becomes 10240). An optional `B`
// suffix is allowed to be able to specify units like "PiB" or "PB".
//
// Inputs may be specified as a decimal, but as a result precision starts to degrade with very large
// input. There is no loss of precision for values specified as whole numbers. For details see:
// https://en.wikipedia.org/wiki/Double-precision_floating-point_format#Precision_limitations_on_integer_values
//
// In all cases if the parsed input would overflow an uint64 an error is returned.
func ParseIntFromStr(input string) (uint64, error) {
	re := regexp.MustCompile(`^([\d\.]+)([a-zA-Z]+B?)?$`)
	matches := re.FindStringSubmatch(input)
	if matches == nil {
		return 0, errors.New(invalidUnitErrorText)
	} else if len(matches) != 3 {
		return 0, fmt.Errorf("unexpected result parsing a number and unit from the provided input: %v", matches)
	}
	prefix := matches[2]

	multiplier, ok := siAndIECPrefixMultipliers[prefix]
	if !ok {
		return 0, fmt.Errorf("bytes must be specified as a whole number, did you mean to specify an SI or IEC prefix besides B? (provided input: %s)", input)
	}

	if !strings.Contains(matches[1], ".") {
		num, err := strconv.ParseUint(matches[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("unable to parse a valid number from the provided input (%s): %w", input, err)
		}
		// Check if multiplication would result in an overflow.
		if num != 0 && uint64(multiplier) > math.MaxUint64/num {
			return 0, fmt.Errorf("value parsed from the provided input would exceed the maximum allowed (%d)", uint64(math.MaxUint64))
		}
		return num * uint64(multiplier), nil
	} else if prefix == "" || prefix == "B" {
		// If the input was provided as a raw value (e.g., bytes) we refuse to use ParseFloat which
		// would lose precision given large integers. For example the max int64 9223372036854775807
		// will be treated as 9223372036854775808 which would likely cause issues elsewhere. Instead
		// return an error so the user knows not to specify bytes with a decimal.
		return 0, fmt.Errorf("bytes must be specified as a whole number, did you mean to specify an SI or IEC prefix besides B? (provided input: %s)", input)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse a valid number from the provided input (%s): %w", input, err)
	}
	b := num * multiplier
	if b > math.MaxUint64 {
		return 0, fmt.Errorf("value parsed from the provided input (%f) is larger than the maximum allowed (%d)", b, uint64(math.MaxUint64))
	}
	return uint64(b), nil
}

// ParseCmd parses a command word given either as the name of a well known request (case
// insensitive, for example "fionread") or as a number in any base accepted by strconv (for example
// "0x4004667f").
func ParseCmd(input string) (ioctl.Cmd, error) {
	if cmd, ok := ioctl.Lookup(strings.ToUpper(input)); ok {
		return cmd, nil
	}
	v, err := strconv.ParseUint(input, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is neither a known request nor a valid command word", input)
	}
	return ioctl.Cmd(v), nil
}

// ParseGroup parses the group of a command word. A single character is used as is (the common
// convention, for example 'T' for terminals), anything else must be a number between 0 and 255.
func ParseGroup(input string) (uint8, error) {
	if len(input) == 1 && (input[0] < '0' || input[0] > '9') {
		return input[0], nil
	}
	v, err := strconv.ParseUint(input, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("the group must be a single character or a number between 0 and 255 (provided: %s)", input)
	}
	return uint8(v), nil
}

// ParseHexData parses bytes given as hex. Whitespace, colons and a leading "0x" are ignored so
// output of tools like xxd can be pasted directly.
func ParseHexData(input string) ([]byte, error) {
	cleaned := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(input)), "0x")
	cleaned = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(cleaned)
	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("unable to parse hex data %q: %w", input, err)
	}
	return data, nil
}

// FormatSize returns the size of a command payload in bytes. Unless raw is set, sizes are printed
// with IEC prefixes.
func FormatSize(size uint32, raw bool) string {
	if raw || size < 1024 {
		return strconv.FormatUint(uint64(size), 10) + "B"
	}
	return unitconv.FormatPrefix(float64(size), unitconv.IEC, 2) + "B"
}

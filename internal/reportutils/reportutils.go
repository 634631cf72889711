package reportutils

// This package exposes a number of tools that facilitate consistent
// formatting in progress reports and the final summary.

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/10gen/data-inflater/internal/types"
	"github.com/dustin/go-humanize"
	"golang.org/x/exp/constraints"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const decimalPrecision = 2

var realNumFmtPattern = "%." + strconv.Itoa(decimalPrecision) + "f"

var printer = message.NewPrinter(language.AmericanEnglish)

// DataUnit signifies some unit of data.
type DataUnit string

const (
	Bytes DataUnit = "bytes"
	KiB   DataUnit = "KiB"
	MiB   DataUnit = "MiB"
	GiB   DataUnit = "GiB"
	TiB   DataUnit = "TiB"
	PiB   DataUnit = "PiB"
)

// Ordered smallest to largest.
var units = []struct {
	unit DataUnit
	size uint64
}{
	{KiB, humanize.KiByte},
	{MiB, humanize.MiByte},
	{GiB, humanize.GiByte},
	{TiB, humanize.TiByte},
	{PiB, humanize.PiByte},
}

// DurationToHMS stringifies `duration` as, e.g., "1h 22m 3.23s".
// It’s a lot like Duration.String(), but with spaces between,
// and the lowest unit shown is always the second.
func DurationToHMS(duration time.Duration) string {
	hours := int(math.Floor(duration.Hours()))
	minutes := int(math.Floor(duration.Minutes())) % 60

	secs := math.Mod(duration.Seconds(), 60)

	str := FmtReal(secs) + "s"

	if hours > 0 {
		str = fmt.Sprintf("%dh %dm %s", hours, minutes, str)
	} else if minutes > 0 {
		str = fmt.Sprintf("%dm %s", minutes, str)
	}

	return str
}

// FmtReal provides a standard formatting of real numbers, with a consistent
// precision and trailing decimal zeros removed.
func FmtReal[T types.RealNumber](num T) string {
	return printer.Sprintf(realNumFmtPattern, num)
}

// FmtCount formats an integer count with thousands separators.
func FmtCount[T constraints.Integer](count T) string {
	return printer.Sprintf("%d", count)
}

// FindBestUnit gives the largest DataUnit in which `count` is at least 1.
func FindBestUnit[T constraints.Integer](count T) DataUnit {
	best := Bytes

	for _, u := range units {
		if count < 0 || uint64(count) < u.size {
			break
		}
		best = u.unit
	}

	return best
}

// BytesToUnit returns a stringified number that represents `count`
// in the given `unit`. For example, count=1024 and unit=KiB would
// return "1".
func BytesToUnit[T constraints.Integer](count T, unit DataUnit) string {
	if unit == Bytes {
		return FmtReal(float64(count))
	}

	for _, u := range units {
		if u.unit == unit {
			return FmtReal(float64(count) / float64(u.size))
		}
	}

	panic(fmt.Sprintf("unknown data unit: %s", unit))
}

// FmtBytes is a convenience that combines BytesToUnit with FindBestUnit.
func FmtBytes[T constraints.Integer](count T) string {
	unit := FindBestUnit(count)
	return BytesToUnit(count, unit) + " " + string(unit)
}

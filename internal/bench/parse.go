package bench

import (
	"bufio"
	"strconv"
	"strings"
)

// ParseSummary locates the summary line in raw benchmark stdout and parses
// it into a Result. The line begins with "impl=" and carries comma-separated
// key=value tokens. Any other stdout content is ignored.
//
// Returns false if no summary line is present or a required numeric field is
// missing or fails to coerce; callers never receive a partially-populated
// Result.
func ParseSummary(raw string) (Result, bool) {
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "impl=") {
			continue
		}
		if res, ok := parseSummaryLine(line); ok {
			return res, true
		}
	}
	return Result{}, false
}

func parseSummaryLine(line string) (Result, bool) {
	fields := make(map[string]string)
	for _, tok := range strings.Split(line, ",") {
		key, value, found := strings.Cut(tok, "=")
		if !found {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	impl := fields["impl"]
	if impl == "" {
		return Result{}, false
	}

	ints := map[string]int{}
	for _, key := range []string{"M", "N", "K", "threads", "MB", "NB", "KB"} {
		v, err := strconv.Atoi(fields[key])
		if err != nil {
			return Result{}, false
		}
		ints[key] = v
	}

	floats := map[string]float64{}
	for _, key := range []string{"time_ms", "gflops", "relerr"} {
		v, err := strconv.ParseFloat(fields[key], 64)
		if err != nil {
			return Result{}, false
		}
		floats[key] = v
	}

	res := Result{
		Impl:    impl,
		M:       ints["M"],
		N:       ints["N"],
		K:       ints["K"],
		Threads: ints["threads"],
		Tile:    Tile{MB: ints["MB"], NB: ints["NB"], KB: ints["KB"]},
		TimeMS:  floats["time_ms"],
		GFLOPS:  floats["gflops"],
		RelErr:  floats["relerr"],
		Notes:   fields["notes"],
	}
	if !res.Valid() {
		return Result{}, false
	}
	return res, true
}

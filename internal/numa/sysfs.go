package numa

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// readListFile reads a sysfs list file such as node/online or nodeN/cpulist.
func readListFile(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseList(strings.TrimSpace(string(data)))
}

// parseList parses the kernel list format (e.g., "0-3,8-11" or "0,2,4,6").
// The result is sorted and free of duplicates.
func parseList(raw string) ([]int, error) {
	if raw == "" {
		return []int{}, nil
	}

	parts := strings.Split(raw, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}

		if strings.Contains(item, "-") {
			bounds := strings.SplitN(item, "-", 2)
			start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", item, err)
			}
			end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", item, err)
			}
			if start < 0 || end < start {
				return nil, errors.New("range end before start")
			}
			for i := start; i <= end; i++ {
				values = append(values, i)
			}
			continue
		}

		value, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid entry %q: %w", item, err)
		}
		if value < 0 {
			return nil, fmt.Errorf("negative entry %d", value)
		}
		values = append(values, value)
	}

	return sortDedupe(values), nil
}

func sortDedupe(values []int) []int {
	if len(values) == 0 {
		return values
	}
	sort.Ints(values)
	result := make([]int, 0, len(values))
	last := values[0] - 1
	for _, value := range values {
		if value == last {
			continue
		}
		result = append(result, value)
		last = value
	}
	return result
}

package consensus

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"quorum/internal/domain"
)

// waitTrueMillis is the numeric substitute for a boolean true in the
// wait rule: a ceiling sentinel folded into the median alongside the
// sampled durations.
const waitTrueMillis = 30

// asFloat converts the numeric shapes a JSON-decoded parameter can take.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// percentileMerge sorts the values ascending and returns the value at
// rank p using linear interpolation between the bracketing order
// statistics: rank = p/100 * (n-1), so p=50 on an even-length list
// averages the two middle values.
func percentileMerge(values []any, p float64) (any, error) {
	if p < 0 || p > 100 {
		return nil, domain.NewDomainError("consensus.percentile", domain.ErrInvalidInput,
			fmt.Sprintf("percentile %v out of [0,100]", p))
	}

	nums := make([]float64, 0, len(values))
	for _, v := range values {
		f, ok := asFloat(v)
		if !ok {
			return nil, domain.NewDomainError("consensus.percentile", domain.ErrNoConsensus,
				fmt.Sprintf("value of type %T is not numeric", v))
		}
		nums = append(nums, f)
	}

	return interpolate(nums, p), nil
}

// interpolate computes the linear-interpolated percentile of nums.
// nums is sorted in place.
func interpolate(nums []float64, p float64) float64 {
	sort.Float64s(nums)
	if len(nums) == 1 {
		return nums[0]
	}

	rank := p / 100 * float64(len(nums)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return nums[lo]
	}
	frac := rank - float64(lo)
	return nums[lo] + frac*(nums[hi]-nums[lo])
}

// waitParameter merges the duration-or-boolean wait parameter.
//
// All-boolean inputs reduce to an OR: any true yields true, otherwise
// false. Once any input is numeric, booleans are substituted
// (true -> waitTrueMillis, false -> 0) and the median of the resulting
// numbers is returned: a lone true can pull the median up but cannot
// dominate it, and a lone false cannot suppress a majority of waits.
func waitParameter(values []any) (any, error) {
	allBool := true
	anyTrue := false
	nums := make([]float64, 0, len(values))

	for _, v := range values {
		if b, ok := v.(bool); ok {
			if b {
				anyTrue = true
				nums = append(nums, waitTrueMillis)
			} else {
				nums = append(nums, 0)
			}
			continue
		}
		f, ok := asFloat(v)
		if !ok {
			return nil, domain.NewDomainError("consensus.waitParameter", domain.ErrNoConsensus,
				fmt.Sprintf("value of type %T is neither boolean nor numeric", v))
		}
		allBool = false
		nums = append(nums, f)
	}

	if allBool {
		return anyTrue, nil
	}
	return interpolate(nums, 50), nil
}

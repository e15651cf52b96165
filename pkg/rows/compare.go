package rows

import (
	"bytes"
	"cmp"
	"math"
	"strings"

	"github.com/vanderheijden86/tasktree/pkg/model"
)

// Comparator orders two sibling tasks; negative means a sorts first.
type Comparator func(a, b *model.Task) int

// ByStatusUrgency sorts by status in display order, then by urgency
// descending (NaN lowest), then by description descending. Tasks equal
// on all three fall back to UUID order so the result is total.
func ByStatusUrgency(a, b *model.Task) int {
	if c := cmp.Compare(a.Status, b.Status); c != 0 {
		return c
	}
	if c := compareUrgencyDesc(a.Urgency, b.Urgency); c != 0 {
		return c
	}
	if c := strings.Compare(b.Description, a.Description); c != 0 {
		return c
	}
	return bytes.Compare(a.UUID[:], b.UUID[:])
}

// compareUrgencyDesc orders higher urgency first with NaN after every
// number.
func compareUrgencyDesc(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	return cmp.Compare(b, a)
}

package timeline

import (
	"sort"

	"github.com/spec-kit/asset-desk/internal/domain"
)

// OrderForDisplay returns a copy of items with the most recent entry first.
// Entries sharing a timestamp keep insertion order (lower Seq first), and the
// id settles anything left, so the result never depends on input arrangement.
func OrderForDisplay(items []domain.Interaction) []domain.Interaction {
	out := make([]domain.Interaction, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return a.ID < b.ID
	})
	return out
}

// Latest returns the most recent entry, if any.
func Latest(items []domain.Interaction) (domain.Interaction, bool) {
	if len(items) == 0 {
		return domain.Interaction{}, false
	}
	return OrderForDisplay(items)[0], true
}

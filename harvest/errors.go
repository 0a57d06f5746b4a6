package harvest

import "fmt"

// ErrOffsetCap is returned before any request is issued when a range scan
// asks for offsets beyond the configured pagination cap (1000 for
// unauthenticated callers, 4000 for registered apps).
type ErrOffsetCap struct {
	Requested int
	Max       int
}

func (e ErrOffsetCap) Error() string {
	return fmt.Sprintf("harvest: offset %d exceeds pagination cap %d", e.Requested, e.Max)
}

// Package cursor moves a selection through the visible rows and keeps a
// padded scroll window around it.
//
// Positions are indices into the visible row sequence, so a folded
// subtree is always exactly one step.
package cursor

// DefaultPadding is how many rows are kept between the cursor and the
// top or bottom edge before the window scrolls.
const DefaultPadding = 7

// Move returns cursor+delta clamped to [0, visibleLen-1], or 0 when
// nothing is visible.
func Move(cursor, delta, visibleLen int) int {
	if visibleLen <= 0 {
		return 0
	}
	next := cursor + delta
	if next < 0 {
		return 0
	}
	if next > visibleLen-1 {
		return visibleLen - 1
	}
	return next
}

// KeepFocus returns the new focus (first row shown) after the cursor
// moved. The window only scrolls when the cursor leaves the band of
// padding rows inside the top and bottom edges:
//
//   - cursor <= padding: focus 0
//   - cursor within [prev+padding, prev+height-padding-1]: focus unchanged
//   - cursor <= prev+padding (left the band upward): cursor-padding
//   - otherwise (left the band downward): cursor+padding+1-height, capped
//     at maxVisible
func KeepFocus(height, padding, cursor, prevFocus, maxVisible int) int {
	if cursor <= padding {
		return 0
	}
	if cursor >= prevFocus+padding && cursor <= prevFocus+height-padding-1 {
		return prevFocus
	}
	if cursor <= prevFocus+padding {
		return cursor - padding
	}
	return min(cursor+padding+1-height, maxVisible)
}

// Viewport is the navigation state: the selected visible row and the
// first visible row on screen.
type Viewport struct {
	Cursor  int
	Focus   int
	Height  int
	Padding int
}

// NewViewport returns a viewport at the top with the given padding.
func NewViewport(height, padding int) Viewport {
	return Viewport{Height: height, Padding: padding}
}

// EffectivePadding is Padding shrunk to fit the height, so that the
// padded band is never empty.
func (v Viewport) EffectivePadding() int {
	p := max(v.Padding, 0)
	if v.Height > 0 && v.Height <= 2*p {
		p = (v.Height - 1) / 2
	}
	return p
}

// Move moves the cursor by delta and re-derives the focus.
func (v *Viewport) Move(delta, visibleLen int) {
	v.Cursor = Move(v.Cursor, delta, visibleLen)
	v.refocus(visibleLen)
}

// MoveTo selects the visible position pos (clamped).
func (v *Viewport) MoveTo(pos, visibleLen int) {
	v.Move(pos-v.Cursor, visibleLen)
}

// Resize changes the height and keeps the cursor on screen.
func (v *Viewport) Resize(height, visibleLen int) {
	v.Height = height
	v.Cursor = Move(v.Cursor, 0, visibleLen)
	v.refocus(visibleLen)
}

// Reset returns to the top.
func (v *Viewport) Reset() {
	v.Cursor = 0
	v.Focus = 0
}

func (v *Viewport) refocus(visibleLen int) {
	if v.Height <= 0 {
		v.Focus = 0
		return
	}
	v.Focus = KeepFocus(v.Height, v.EffectivePadding(), v.Cursor, v.Focus, visibleLen)
}

// Window returns the half-open range of visible positions on screen.
func (v Viewport) Window(visibleLen int) (start, end int) {
	start = min(max(v.Focus, 0), visibleLen)
	end = visibleLen
	if v.Height > 0 {
		end = min(start+v.Height, visibleLen)
	}
	return start, end
}

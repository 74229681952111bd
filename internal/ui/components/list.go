package components

// Window tracks a cursor over n rows and the slice of rows currently on
// screen. It holds no items, only positions.
type Window struct {
	n      int
	cursor int
	offset int
	size   int
}

// NewWindow returns a window showing size rows at a time.
func NewWindow(size int) *Window {
	return &Window{size: max(size, 1)}
}

// SetLen sets the row count, keeping the cursor in range.
func (w *Window) SetLen(n int) {
	w.n = max(n, 0)
	if w.cursor >= w.n {
		w.cursor = max(w.n-1, 0)
	}
	w.clamp()
}

// Len returns the row count.
func (w *Window) Len() int {
	return w.n
}

// Down moves the cursor down one row.
func (w *Window) Down() {
	if w.cursor < w.n-1 {
		w.cursor++
		w.clamp()
	}
}

// Up moves the cursor up one row.
func (w *Window) Up() {
	if w.cursor > 0 {
		w.cursor--
		w.clamp()
	}
}

// Top moves the cursor to the first row.
func (w *Window) Top() {
	w.cursor = 0
	w.clamp()
}

// Selected returns the cursor row.
func (w *Window) Selected() int {
	return w.cursor
}

// Range returns the visible rows as [start, end).
func (w *Window) Range() (start, end int) {
	return w.offset, min(w.offset+w.size, w.n)
}

func (w *Window) clamp() {
	if w.cursor < w.offset {
		w.offset = w.cursor
	}
	if w.cursor >= w.offset+w.size {
		w.offset = w.cursor - w.size + 1
	}
	w.offset = max(min(w.offset, w.n-w.size), 0)
}

package ocr

// Box is a flat word result carrying its position in the layout tree.
// Block, Para and Line numbers identify the enclosing elements; Line is
// relative to Para and Para to Block.
type Box struct {
	Text       string
	Rect       Rect
	Confidence float32
	Block      int
	Para       int
	Line       int
	Word       int
}

func (b Box) key(level Level) [4]int {
	k := [4]int{b.Block, b.Para, b.Line, b.Word}
	for i := int(level) + 1; i < len(k); i++ {
		k[i] = 0
	}
	return k
}

// BoxIterator implements WordIterator over a slice of boxes.
type BoxIterator struct {
	boxes []Box
	pos   int
}

var _ WordIterator = (*BoxIterator)(nil)

// NewBoxIterator iterates boxes in slice order.
func NewBoxIterator(boxes []Box) *BoxIterator {
	return &BoxIterator{boxes: boxes, pos: -1}
}

func (it *BoxIterator) Next() bool {
	if it.pos+1 >= len(it.boxes) {
		it.pos = len(it.boxes)
		return false
	}
	it.pos++
	return true
}

func (it *BoxIterator) valid() bool {
	return it.pos >= 0 && it.pos < len(it.boxes)
}

func (it *BoxIterator) Word() Word {
	if !it.valid() {
		return Word{}
	}
	b := it.boxes[it.pos]
	r := b.Rect
	return Word{
		Text:       b.Text,
		HasText:    b.Text != "",
		Box:        r,
		HasBox:     r.Right > r.Left && r.Bottom > r.Top,
		Confidence: b.Confidence,
	}
}

func (it *BoxIterator) IsAtBeginningOf(level Level) bool {
	if !it.valid() {
		return false
	}
	if it.pos == 0 {
		return true
	}
	return it.boxes[it.pos-1].key(level) != it.boxes[it.pos].key(level)
}

func (it *BoxIterator) IsAtFinalElement(level, element Level) bool {
	if !it.valid() || element < level {
		return false
	}
	cur := it.boxes[it.pos]
	for _, next := range it.boxes[it.pos+1:] {
		if next.key(element) == cur.key(element) {
			continue
		}
		return next.key(level) != cur.key(level)
	}
	return true
}

// Package engine implements the rectangle packer that assigns sprites to
// fixed-size bins.
package engine

import "sort"

// Item is a rectangle waiting to be packed. Payload is carried through to
// the placement untouched.
type Item[T any] struct {
	Width   int
	Height  int
	Payload T
}

// Placed is an item with its position inside a bin.
type Placed[T any] struct {
	X       int
	Y       int
	Width   int
	Height  int
	Payload T
}

// MultiBinPacker places items into as many bins as needed. Bins are tried
// in creation order and the first one with room wins; a new bin is opened
// only when no existing bin can take the item.
type MultiBinPacker[T any] struct {
	MaxWidth  int
	MaxHeight int
	Padding   int

	Bins      []*Bin[T]
	Oversized []Item[T]
}

func NewMultiBinPacker[T any](maxWidth, maxHeight, padding int) *MultiBinPacker[T] {
	return &MultiBinPacker[T]{
		MaxWidth:  maxWidth,
		MaxHeight: maxHeight,
		Padding:   padding,
	}
}

// Add places a single item. Items larger than the bin on either axis are
// recorded in Oversized and never placed.
func (p *MultiBinPacker[T]) Add(item Item[T]) {
	if item.Width > p.MaxWidth || item.Height > p.MaxHeight {
		p.Oversized = append(p.Oversized, item)
		return
	}
	for _, bin := range p.Bins {
		if _, ok := bin.Add(item); ok {
			return
		}
	}
	bin := NewBin[T](p.MaxWidth, p.MaxHeight, p.Padding)
	bin.Add(item)
	p.Bins = append(p.Bins, bin)
}

// AddAll places items largest dimension first. The input slice is not
// modified; items with equal largest dimension keep their input order.
func (p *MultiBinPacker[T]) AddAll(items []Item[T]) {
	sorted := make([]Item[T], len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return longSide(sorted[i]) > longSide(sorted[j])
	})
	for _, item := range sorted {
		p.Add(item)
	}
}

func longSide[T any](item Item[T]) int {
	if item.Width > item.Height {
		return item.Width
	}
	return item.Height
}

// nodeID is a handle into a bin's node arena.
type nodeID int

// node is one region of a bin. A leaf that is not occupied is free space.
// Once occupied it owns up to two child regions: the strip below the placed
// rectangle and the strip to its right.
type node struct {
	x, y, w, h int
	occupied   bool
	children   []nodeID
}

// Bin is a binary-tree packer for a single fixed-size sheet.
type Bin[T any] struct {
	maxWidth  int
	maxHeight int
	padding   int

	nodes []node
	rects []Placed[T]

	width  int
	height int
}

// NewBin creates an empty bin. The root region is enlarged by the padding
// so that a rectangle touching the far edge does not need trailing padding.
func NewBin[T any](maxWidth, maxHeight, padding int) *Bin[T] {
	if padding < 0 {
		padding = 0
	}
	b := &Bin[T]{
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		padding:   padding,
	}
	b.nodes = append(b.nodes, node{w: maxWidth + padding, h: maxHeight + padding})
	return b
}

// Add places the item in the first free region that fits, in depth-first
// creation order. It returns false when the bin has no room.
func (b *Bin[T]) Add(item Item[T]) (Placed[T], bool) {
	w := item.Width + b.padding
	h := item.Height + b.padding

	id, ok := b.findNode(0, w, h)
	if !ok {
		return Placed[T]{}, false
	}
	b.split(id, w, h)

	n := b.nodes[id]
	b.width = max(b.width, n.x+item.Width)
	b.height = max(b.height, n.y+item.Height)

	placed := Placed[T]{
		X:       n.x,
		Y:       n.y,
		Width:   item.Width,
		Height:  item.Height,
		Payload: item.Payload,
	}
	b.rects = append(b.rects, placed)
	return placed, true
}

func (b *Bin[T]) findNode(id nodeID, w, h int) (nodeID, bool) {
	n := b.nodes[id]
	if n.occupied {
		for _, child := range n.children {
			if found, ok := b.findNode(child, w, h); ok {
				return found, true
			}
		}
		return 0, false
	}
	if w <= n.w && h <= n.h {
		return id, true
	}
	return 0, false
}

// split marks the node occupied and creates its below and right children.
func (b *Bin[T]) split(id nodeID, w, h int) {
	n := b.nodes[id]
	var children []nodeID

	if n.h-h > 0 && n.x < b.maxWidth {
		children = append(children, b.alloc(node{x: n.x, y: n.y + h, w: n.w, h: n.h - h}))
	}
	if n.w-w > 0 && n.y < b.maxHeight {
		children = append(children, b.alloc(node{x: n.x + w, y: n.y, w: n.w - w, h: h}))
	}

	b.nodes[id].occupied = true
	b.nodes[id].children = children
}

func (b *Bin[T]) alloc(n node) nodeID {
	b.nodes = append(b.nodes, n)
	return nodeID(len(b.nodes) - 1)
}

// Width returns the right-most extent reached by any placement.
func (b *Bin[T]) Width() int { return b.width }

// Height returns the bottom-most extent reached by any placement.
func (b *Bin[T]) Height() int { return b.height }

// Rects returns the placements in insertion order.
func (b *Bin[T]) Rects() []Placed[T] { return b.rects }

package rvf

import (
	"fmt"
	"strings"
)

// Card is one keyword/value/comment entry of a segment metadata block.
// Value is nil, string, int64, float64 or bool.
type Card struct {
	Keyword string
	Value   any
	Comment string
}

// Card value type tags on the wire.
const (
	valNone   uint8 = 0
	valString uint8 = 1
	valInt    uint8 = 2
	valFloat  uint8 = 3
	valBool   uint8 = 4
)

// HeaderBlock is an ordered mapping of keyword cards. Keywords are
// case-normalised to upper case; setting an existing keyword updates its card
// in place without changing its position.
type HeaderBlock struct {
	cards []Card
	index map[string]int
}

func NewHeaderBlock() *HeaderBlock {
	return &HeaderBlock{index: make(map[string]int)}
}

// Set inserts or updates a card. Numeric values are coerced to int64/float64;
// anything outside the supported value types is stored as its string form.
func (h *HeaderBlock) Set(keyword string, value any, comment string) {
	if h.index == nil {
		h.index = make(map[string]int)
	}
	keyword = normKeyword(keyword)
	card := Card{Keyword: keyword, Value: normValue(value), Comment: comment}
	if i, ok := h.index[keyword]; ok {
		h.cards[i] = card
		return
	}
	h.index[keyword] = len(h.cards)
	h.cards = append(h.cards, card)
}

// Get returns the value stored under keyword.
func (h *HeaderBlock) Get(keyword string) (any, bool) {
	c, ok := h.Card(keyword)
	if !ok {
		return nil, false
	}
	return c.Value, true
}

// Card returns the full card stored under keyword.
func (h *HeaderBlock) Card(keyword string) (Card, bool) {
	if h.index == nil {
		return Card{}, false
	}
	i, ok := h.index[normKeyword(keyword)]
	if !ok {
		return Card{}, false
	}
	return h.cards[i], true
}

// Del removes the card stored under keyword and reports whether it existed.
func (h *HeaderBlock) Del(keyword string) bool {
	if h.index == nil {
		return false
	}
	keyword = normKeyword(keyword)
	i, ok := h.index[keyword]
	if !ok {
		return false
	}
	h.cards = append(h.cards[:i], h.cards[i+1:]...)
	delete(h.index, keyword)
	for k, j := range h.index {
		if j > i {
			h.index[k] = j - 1
		}
	}
	return true
}

func (h *HeaderBlock) Len() int {
	if h == nil {
		return 0
	}
	return len(h.cards)
}

// Cards returns the cards in insertion order. The slice is a copy; the cards
// themselves are values and safe to retain.
func (h *HeaderBlock) Cards() []Card {
	if h == nil {
		return nil
	}
	out := make([]Card, len(h.cards))
	copy(out, h.cards)
	return out
}

func (h *HeaderBlock) Clone() *HeaderBlock {
	if h == nil {
		return nil
	}
	out := NewHeaderBlock()
	for _, c := range h.cards {
		out.Set(c.Keyword, c.Value, c.Comment)
	}
	return out
}

func normKeyword(k string) string {
	return strings.ToUpper(strings.TrimSpace(k))
}

func normValue(v any) any {
	switch x := v.(type) {
	case nil, string, int64, float64, bool:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return fmt.Sprint(x)
	}
}

// EncodeHeaderBlock serialises a card block. A nil block encodes as empty.
func EncodeHeaderBlock(h *HeaderBlock) []byte {
	var e encbuf
	if h == nil {
		e.putU32(0)
		return e.bytes()
	}
	e.putU32(uint32(len(h.cards)))
	for _, c := range h.cards {
		e.putString(c.Keyword)
		switch v := c.Value.(type) {
		case nil:
			e.putU8(valNone)
		case string:
			e.putU8(valString)
			e.putString(v)
		case int64:
			e.putU8(valInt)
			e.putI64(v)
		case float64:
			e.putU8(valFloat)
			e.putF64(v)
		case bool:
			e.putU8(valBool)
			e.putBool(v)
		}
		e.putString(c.Comment)
	}
	return e.bytes()
}

// DecodeHeaderBlock parses a card block.
func DecodeHeaderBlock(data []byte) (*HeaderBlock, error) {
	d := decbuf{b: data}
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	h := NewHeaderBlock()
	for i := uint32(0); i < n; i++ {
		keyword, err := d.str()
		if err != nil {
			return nil, err
		}
		tag, err := d.u8()
		if err != nil {
			return nil, err
		}
		var value any
		switch tag {
		case valNone:
			value = nil
		case valString:
			value, err = d.str()
		case valInt:
			value, err = d.i64()
		case valFloat:
			value, err = d.f64()
		case valBool:
			value, err = d.bool()
		default:
			return nil, fmt.Errorf("%w: card value tag %d", ErrCorruptFile, tag)
		}
		if err != nil {
			return nil, err
		}
		comment, err := d.str()
		if err != nil {
			return nil, err
		}
		h.Set(keyword, value, comment)
	}
	return h, nil
}

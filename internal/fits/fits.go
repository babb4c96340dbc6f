package fits

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"

	"siphon/internal/services"
)

// Card is one primary-header keyword with its value rendered as text.
type Card struct {
	Key   string
	Value string
}

// Header holds the value cards of a FITS primary header in file order.
// Values are text: logicals render as T/F, numbers through strconv, and
// character strings with trailing blanks removed.
type Header struct {
	cards []Card
	index map[string]int
}

// NewHeader builds a header from cards in order. Repeated keys keep every
// card, but lookups resolve to the first occurrence.
func NewHeader(cards []Card) *Header {
	h := &Header{
		cards: cards,
		index: make(map[string]int, len(cards)),
	}
	for i, card := range cards {
		if _, ok := h.index[card.Key]; !ok {
			h.index[card.Key] = i
		}
	}
	return h
}

// Get returns the value recorded for key and whether the key is present.
// When a keyword repeats, the first occurrence wins.
func (h *Header) Get(key string) (string, bool) {
	i, ok := h.index[key]
	if !ok {
		return "", false
	}
	return h.cards[i].Value, true
}

// Keys returns every keyword in file order.
func (h *Header) Keys() []string {
	keys := make([]string, len(h.cards))
	for i, card := range h.cards {
		keys[i] = card.Key
	}
	return keys
}

// Len returns the number of value cards.
func (h *Header) Len() int {
	return len(h.cards)
}

// ReadPrimaryHeader extracts the primary-header cards from the FITS file at
// path.
func ReadPrimaryHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "fits", "read header", path, err)
	}
	defer f.Close()

	fit, err := fitsio.Open(f)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "fits", "read header", path, err)
	}
	defer fit.Close()

	hdus := fit.HDUs()
	if len(hdus) == 0 {
		return nil, services.Wrap(services.ErrValidation, "fits", "read header", path+": no header units", nil)
	}

	hdr := hdus[0].Header()
	keys := hdr.Keys()
	cards := make([]Card, 0, len(keys))
	for _, key := range keys {
		card := hdr.Get(key)
		if card == nil {
			continue
		}
		cards = append(cards, Card{Key: key, Value: renderValue(card.Value)})
	}
	return NewHeader(cards), nil
}

func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimRight(v, " ")
	case bool:
		if v {
			return "T"
		}
		return "F"
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

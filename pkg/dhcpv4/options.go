package dhcpv4

import (
	"fmt"
	"strings"

	"github.com/u-root/uio/uio"
)

// Options is a fixed-capacity option set with one slot per tag. Iteration
// and serialization always run in ascending tag order, independent of
// insertion order. Pad and End never occupy a slot; End is appended by
// ToBytes. The zero value is an empty set.
type Options struct {
	slots [256]*Option
	n     int
}

// NewOptions returns a set holding opts. Later options overwrite earlier
// ones with the same tag.
func NewOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		o.Upsert(opt)
	}
	return o
}

// Upsert stores opt in the slot for its tag, replacing any previous value.
// The zero Option is ignored.
func (o *Options) Upsert(opt Option) {
	if opt.IsZero() {
		return
	}
	if o.slots[opt.code] == nil {
		o.n++
	}
	o.slots[opt.code] = &opt
}

// UpsertOptional upserts opt when it is non-nil.
func (o *Options) UpsertOptional(opt *Option) {
	if opt != nil {
		o.Upsert(*opt)
	}
}

// Remove clears the slot for code.
func (o *Options) Remove(codes ...OptionCode) {
	for _, code := range codes {
		if o.slots[code] != nil {
			o.slots[code] = nil
			o.n--
		}
	}
}

// Merge overwrites every slot that is occupied in other.
func (o *Options) Merge(other Options) {
	for _, opt := range other.slots {
		if opt != nil {
			o.Upsert(*opt)
		}
	}
}

// Get returns the option stored for code, or an ErrOptionMissing error.
func (o *Options) Get(code OptionCode) (Option, error) {
	if opt := o.slots[code]; opt != nil {
		return *opt, nil
	}
	return Option{}, optionErr(code, ErrOptionMissing, "")
}

// Lookup returns the option stored for code and whether it was present.
func (o *Options) Lookup(code OptionCode) (Option, bool) {
	if opt := o.slots[code]; opt != nil {
		return *opt, true
	}
	return Option{}, false
}

// Has reports whether a value is stored for code.
func (o *Options) Has(code OptionCode) bool {
	return o.slots[code] != nil
}

// Len returns the number of occupied slots.
func (o *Options) Len() int {
	return o.n
}

// Codes returns the occupied tags in ascending order.
func (o *Options) Codes() []OptionCode {
	codes := make([]OptionCode, 0, o.n)
	for i, opt := range o.slots {
		if opt != nil {
			codes = append(codes, OptionCode(i))
		}
	}
	return codes
}

// Each calls fn for every stored option in ascending tag order.
func (o *Options) Each(fn func(Option)) {
	for _, opt := range o.slots {
		if opt != nil {
			fn(*opt)
		}
	}
}

// Clone returns an independent copy. Stored options are immutable and are
// shared.
func (o *Options) Clone() Options {
	return *o
}

// Equal reports whether both sets hold the same options.
func (o Options) Equal(other Options) bool {
	if o.n != other.n {
		return false
	}
	for i := range o.slots {
		a, b := o.slots[i], other.slots[i]
		if (a == nil) != (b == nil) {
			return false
		}
		if a != nil && !a.Equal(*b) {
			return false
		}
	}
	return true
}

// ToBytes serializes every stored option in ascending tag order followed
// by the End option.
func (o *Options) ToBytes() []byte {
	size := 1
	for _, opt := range o.slots {
		if opt != nil {
			size += 2 + len(opt.payload)
		}
	}
	b := make([]byte, 0, size)
	for _, opt := range o.slots {
		if opt != nil {
			b = opt.appendTo(b)
		}
	}
	return append(b, byte(OptionEnd))
}

// OptionsFromBytes parses a TLV option stream. Pad bytes are skipped,
// End stops the parse and the remaining bytes are ignored. A repeated tag
// replaces the earlier value. The first malformed option aborts the parse.
func OptionsFromBytes(data []byte) (Options, error) {
	var o Options
	buf := uio.NewBigEndianBuffer(data)
	for buf.Len() > 0 {
		code := OptionCode(buf.Read8())
		switch code {
		case OptionPad:
			continue
		case OptionEnd:
			return o, nil
		}

		if !buf.Has(1) {
			return Options{}, optionErr(code, ErrOptionParse, "truncated: no length byte")
		}
		length := int(buf.Read8())
		if !buf.Has(length) {
			return Options{}, optionErr(code, ErrOptionParse, "truncated: need %d bytes, have %d", length, buf.Len())
		}

		opt, err := DecodeOption(code, buf.Consume(length))
		if err != nil {
			return Options{}, err
		}
		o.Upsert(opt)
	}
	return o, nil
}

func (o Options) String() string {
	var b strings.Builder
	b.WriteString("[")
	first := true
	o.Each(func(opt Option) {
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%d=%s", byte(opt.code), opt)
	})
	b.WriteString("]")
	return b.String()
}

package dhcpv4

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustOption(t *testing.T, code OptionCode, value any) Option {
	t.Helper()
	opt, err := NewOption(code, value)
	if err != nil {
		t.Fatalf("NewOption(%d) error: %v", code, err)
	}
	return opt
}

func TestOptionsAscendingOrder(t *testing.T) {
	// Inserted out of order; serialization is ascending regardless.
	o := NewOptions(
		OptMessageType(MessageTypeDiscover),
		mustOption(t, OptionHostname, "host"),
		OptSubnetMask(netip.MustParseAddr("255.255.255.0")),
		OptIPAddressLeaseTime(60),
	)
	want := []byte{
		1, 4, 255, 255, 255, 0,
		12, 4, 'h', 'o', 's', 't',
		51, 4, 0, 0, 0, 60,
		53, 1, 1,
		255,
	}
	if diff := cmp.Diff(want, o.ToBytes()); diff != "" {
		t.Errorf("ToBytes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]OptionCode{1, 12, 51, 53}, o.Codes()); diff != "" {
		t.Errorf("Codes mismatch (-want +got):\n%s", diff)
	}
}

func TestOptionsEmptyToBytes(t *testing.T) {
	var o Options
	if diff := cmp.Diff([]byte{255}, o.ToBytes()); diff != "" {
		t.Errorf("empty ToBytes mismatch (-want +got):\n%s", diff)
	}
}

func TestOptionsUpsertRemove(t *testing.T) {
	var o Options
	o.Upsert(OptIPAddressLeaseTime(60))
	o.Upsert(OptIPAddressLeaseTime(120))
	o.Upsert(Option{})
	if o.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", o.Len())
	}
	opt, err := o.Get(OptionIPLeaseTime)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if n, _ := opt.Uint32(); n != 120 {
		t.Errorf("lease time = %d, want 120", n)
	}

	o.UpsertOptional(nil)
	mask := OptSubnetMask(netip.MustParseAddr("255.0.0.0"))
	o.UpsertOptional(&mask)
	if !o.Has(OptionSubnetMask) {
		t.Error("UpsertOptional did not store the option")
	}

	o.Remove(OptionIPLeaseTime, OptionRouter)
	if o.Has(OptionIPLeaseTime) {
		t.Error("Remove left option 51 in place")
	}
	if o.Len() != 1 {
		t.Errorf("Len() = %d, want 1", o.Len())
	}

	_, err = o.Get(OptionIPLeaseTime)
	if !errors.Is(err, ErrOptionMissing) {
		t.Errorf("Get error = %v, want ErrOptionMissing", err)
	}
	if _, ok := o.Lookup(OptionIPLeaseTime); ok {
		t.Error("Lookup found a removed option")
	}
}

func TestOptionsMerge(t *testing.T) {
	a := NewOptions(OptIPAddressLeaseTime(60), OptMessageType(MessageTypeDiscover))
	b := NewOptions(OptIPAddressLeaseTime(3600), OptSubnetMask(netip.MustParseAddr("255.255.255.0")))
	a.Merge(b)

	want := NewOptions(
		OptIPAddressLeaseTime(3600),
		OptMessageType(MessageTypeDiscover),
		OptSubnetMask(netip.MustParseAddr("255.255.255.0")),
	)
	if diff := cmp.Diff(want, a); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestOptionsCloneIndependent(t *testing.T) {
	a := NewOptions(OptIPAddressLeaseTime(60))
	b := a.Clone()
	b.Upsert(OptMessageType(MessageTypeOffer))
	b.Remove(OptionIPLeaseTime)
	if !a.Has(OptionIPLeaseTime) || a.Has(OptionDHCPMessageType) {
		t.Errorf("mutating the clone changed the original: %v", a)
	}
}

func TestOptionsFromBytes(t *testing.T) {
	data := []byte{
		0, 0, // pad
		53, 1, 3,
		0,
		50, 4, 10, 0, 0, 5,
		50, 4, 10, 0, 0, 6, // repeated tag replaces
		255,
		99, 99, 99, // trailing garbage after End
	}
	o, err := OptionsFromBytes(data)
	if err != nil {
		t.Fatalf("OptionsFromBytes error: %v", err)
	}
	if o.Len() != 2 {
		t.Errorf("Len() = %d, want 2", o.Len())
	}
	opt, _ := o.Get(OptionRequestedIP)
	if ip, _ := opt.IP(); ip != netip.MustParseAddr("10.0.0.6") {
		t.Errorf("requested IP = %s, want 10.0.0.6", ip)
	}
}

func TestOptionsFromBytesWithoutEnd(t *testing.T) {
	o, err := OptionsFromBytes([]byte{53, 1, 1})
	if err != nil {
		t.Fatalf("OptionsFromBytes error: %v", err)
	}
	if !o.Has(OptionDHCPMessageType) {
		t.Error("option 53 missing")
	}
}

func TestOptionsFromBytesErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"no length byte", []byte{53}, ErrOptionParse},
		{"truncated value", []byte{50, 4, 10, 0}, ErrOptionParse},
		{"bad value", []byte{53, 1, 1, 57, 2, 0, 100}, ErrOptionValue},
		{"bad length", []byte{54, 3, 10, 0, 0}, ErrOptionParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OptionsFromBytes(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("OptionsFromBytes error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOptionsRoundTrip(t *testing.T) {
	o := NewOptions(
		OptMessageType(MessageTypeAck),
		OptServerIdentifier(netip.MustParseAddr("10.0.0.1")),
		mustOption(t, OptionRouter, []netip.Addr{netip.MustParseAddr("10.0.0.1")}),
		mustOption(t, OptionDomainName, "example.com"),
		mustOption(t, OptionDomainSearch, []string{"example.com", "example.net"}),
		mustOption(t, OptionCode(250), []byte{1}),
	)
	back, err := OptionsFromBytes(o.ToBytes())
	if err != nil {
		t.Fatalf("OptionsFromBytes error: %v", err)
	}
	if diff := cmp.Diff(o, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

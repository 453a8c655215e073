package xns

import (
	"bytes"
	"testing"
)

func TestIDPRoundTripWithChecksum(t *testing.T) {
	idp := IDP{
		Control:   0,
		Type:      TypeEcho,
		DstNet:    1,
		DstHost:   Broadcast,
		DstSocket: SocketEcho,
		SrcNet:    1,
		SrcHost:   HostAddress(0x0102030405),
		SrcSocket: SocketEcho,
		Payload:   []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
	raw := idp.Encode()
	if len(raw) != 34 {
		t.Fatalf("len(raw) = %d, want 34 (30-byte header + 4-byte payload, no padding)", len(raw))
	}

	decoded, err := DecodeIDP(raw)
	if err != nil {
		t.Fatalf("DecodeIDP: %v", err)
	}
	if decoded.SrcHost != idp.SrcHost || decoded.Type != idp.Type {
		t.Fatalf("decoded = %+v", decoded)
	}
	if !bytes.Equal(decoded.Payload, idp.Payload) {
		t.Fatalf("payload = %x, want %x", decoded.Payload, idp.Payload)
	}

	raw[len(raw)-1] ^= 0x01
	if _, err := DecodeIDP(raw); err == nil {
		t.Fatal("expected checksum mismatch after bit flip")
	}
}

func TestIDPNoChecksumSkipsVerification(t *testing.T) {
	idp := IDP{Checksum: NoChecksum, Type: TypeEcho, Payload: []byte{1, 2, 3}}
	raw := idp.Encode()
	raw[len(raw)-1] ^= 0xFF
	decoded, err := DecodeIDP(raw)
	if err != nil {
		t.Fatalf("DecodeIDP: %v", err)
	}
	if decoded.Checksum != NoChecksum {
		t.Fatalf("checksum = %#x, want NoChecksum", decoded.Checksum)
	}
}

func TestRIPRoundTrip(t *testing.T) {
	r := RIP{Type: RIPResponse, Entries: []RIPEntry{{Net: 1, Hop: 1}, {Net: 2, Hop: 2}}}
	decoded := DecodeRIP(r.Encode())
	if decoded.Type != r.Type || len(decoded.Entries) != 2 {
		t.Fatalf("decoded = %+v", decoded)
	}
	if decoded.Entries[0] != r.Entries[0] || decoded.Entries[1] != r.Entries[1] {
		t.Fatalf("entries = %+v", decoded.Entries)
	}
}

func TestEchoRoundTrip(t *testing.T) {
	e := Echo{Type: EchoRequest, Block: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	decoded := DecodeEcho(e.Encode())
	if decoded.Type != e.Type || !bytes.Equal(decoded.Block, e.Block) {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestSPPRoundTrip(t *testing.T) {
	s := SPP{
		Control: SPPSystemPacket | SPPSendAck,
		SST:     0,
		IDSrc:   10,
		IDDst:   20,
		Seq:     1,
		Ack:     2,
		Alloc:   4,
		Payload: []byte("hello"),
	}
	decoded := DecodeSPP(s.Encode())
	if !decoded.IsSystemPacket() || !decoded.SendAck() {
		t.Fatalf("decoded control bits: %+v", decoded)
	}
	if decoded.Seq != s.Seq || decoded.Ack != s.Ack || !bytes.Equal(decoded.Payload, s.Payload) {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestBootVariantAccessorTagMismatchPanics(t *testing.T) {
	b := NewSimpleRequest()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling SimpleData() on a SimpleRequest")
		}
	}()
	b.SimpleData()
}

func TestBootSimpleDataRoundTrip(t *testing.T) {
	b := NewSimpleData([]byte{1, 2, 3})
	decoded, err := DecodeBoot(b.Encode())
	if err != nil {
		t.Fatalf("DecodeBoot: %v", err)
	}
	if !bytes.Equal(decoded.SimpleData().Data, []byte{1, 2, 3}) {
		t.Fatalf("decoded = %+v", decoded.SimpleData())
	}
}

func TestExpeditedCourierRoundTrip(t *testing.T) {
	ec := ExpeditedCourier{
		ProtocolRange: 3,
		Body: Protocol3Body{
			MessageType:   CourierCall,
			TransactionID: 42,
			Payload:       []byte("args"),
		},
	}
	decoded := DecodeExpeditedCourier(ec.Encode())
	if decoded.ProtocolRange != ec.ProtocolRange || decoded.Body.TransactionID != 42 {
		t.Fatalf("decoded = %+v", decoded)
	}
	if !bytes.Equal(decoded.Body.Payload, ec.Body.Payload) {
		t.Fatalf("payload = %q", decoded.Body.Payload)
	}
}

func TestEthernetFrameAcceptance(t *testing.T) {
	self := HostAddress(0x0102030405)
	other := HostAddress(0xAABBCCDDEEFF)

	f := Frame{Header: EthernetHeader{Dst: self, Src: other, Type: EtherTypeXNS}}
	if !f.Accepted(self) {
		t.Fatal("expected frame addressed to self to be accepted")
	}

	bcast := Frame{Header: EthernetHeader{Dst: Broadcast, Src: other, Type: EtherTypeXNS}}
	if !bcast.Accepted(self) {
		t.Fatal("expected broadcast frame to be accepted")
	}

	fromSelf := Frame{Header: EthernetHeader{Dst: Broadcast, Src: self, Type: EtherTypeXNS}}
	if fromSelf.Accepted(self) {
		t.Fatal("expected frame from self to be rejected")
	}

	wrongType := Frame{Header: EthernetHeader{Dst: self, Src: other, Type: 0x0800}}
	if wrongType.Accepted(self) {
		t.Fatal("expected non-XNS ethertype to be rejected")
	}
}

func TestTimeReplyEncodesPilotEpoch(t *testing.T) {
	reply := TimeReply{Seconds: PilotSeconds(0), Offset: 0, Tolerance: ToleranceMilli, ToleranceV: 10}
	raw := reply.Encode()
	if len(raw) != 14 {
		t.Fatalf("len(raw) = %d, want 14", len(raw))
	}
	got, err := DecodeTimeReply(raw)
	if err != nil {
		t.Fatalf("DecodeTimeReply: %v", err)
	}
	if got.Seconds != 2177452800 {
		t.Fatalf("Seconds = %d, want 2177452800 (Unix epoch in Pilot seconds)", got.Seconds)
	}
}

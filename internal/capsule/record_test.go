package capsule

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRecord_DigitalDropsAddress(t *testing.T) {
	r := Record{
		ID:               "01J0000000000000000000000A",
		RecipientName:    "Ada",
		RecipientEmail:   "ada@example.com",
		RecipientAddress: "should be dropped",
		DeliveryDate:     "2031-01-01",
		Message:          "hi",
		CoverImageURL:    "https://example.com/c.png",
		DeliveryMethod:   MethodDigital,
	}

	c, err := r.ToCapsule()
	if err != nil {
		t.Fatalf("ToCapsule failed: %v", err)
	}
	if c.Address() != "" {
		t.Errorf("Address() = %q, want empty for digital", c.Address())
	}
	if c.Email() != "ada@example.com" {
		t.Errorf("Email() = %q", c.Email())
	}

	back := c.ToRecord()
	if back.RecipientAddress != "" {
		t.Errorf("round-trip RecipientAddress = %q, want empty", back.RecipientAddress)
	}
}

func TestRecord_PhysicalDropsEmailAndFile(t *testing.T) {
	r := Record{
		ID:               "01J0000000000000000000000B",
		RecipientName:    "Grace",
		RecipientEmail:   "dropped@example.com",
		RecipientAddress: "1 Navy Way",
		DeliveryDate:     "2031-01-01",
		Message:          "hi",
		File:             &AttachmentFile{Name: "a.webm", Type: "audio/webm", Data: "AAAA"},
		CoverImageURL:    "https://example.com/c.png",
		DeliveryMethod:   MethodPhysical,
	}

	c, err := r.ToCapsule()
	if err != nil {
		t.Fatalf("ToCapsule failed: %v", err)
	}
	if c.Email() != "" {
		t.Errorf("Email() = %q, want empty for physical", c.Email())
	}
	if c.Attachment() != nil {
		t.Error("physical capsule should not carry an attachment")
	}
	p, ok := c.Delivery.(Physical)
	if !ok {
		t.Fatalf("Delivery = %T, want Physical", c.Delivery)
	}
	if p.Cover != CoverAI {
		t.Errorf("Cover = %q, want default %q", p.Cover, CoverAI)
	}
}

func TestRecord_Rejects(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"no id", Record{RecipientName: "Ada", Message: "hi", RecipientEmail: "a@b.com", DeliveryDate: "2031-01-01", DeliveryMethod: MethodDigital}},
		{"bad date", Record{ID: "x", RecipientName: "Ada", Message: "hi", RecipientEmail: "a@b.com", DeliveryDate: "soon", DeliveryMethod: MethodDigital}},
		{"bad method", Record{ID: "x", RecipientName: "Ada", Message: "hi", DeliveryDate: "2031-01-01", DeliveryMethod: "fax"}},
		{"no name", Record{ID: "x", Message: "hi", RecipientEmail: "a@b.com", DeliveryDate: "2031-01-01", DeliveryMethod: MethodDigital}},
		{"blank message", Record{ID: "x", RecipientName: "Ada", Message: "  ", RecipientEmail: "a@b.com", DeliveryDate: "2031-01-01", DeliveryMethod: MethodDigital}},
		{"digital without email", Record{ID: "x", RecipientName: "Ada", Message: "hi", DeliveryDate: "2031-01-01", DeliveryMethod: MethodDigital}},
		{"physical without address", Record{ID: "x", RecipientName: "Ada", Message: "hi", RecipientEmail: "a@b.com", DeliveryDate: "2031-01-01", DeliveryMethod: MethodPhysical}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.rec.ToCapsule(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRecord_EmptyCoverGetsPlaceholder(t *testing.T) {
	r := Record{
		ID:             "x",
		RecipientName:  "Ada",
		RecipientEmail: "ada@example.com",
		DeliveryDate:   "2031-01-01",
		Message:        "hi",
		DeliveryMethod: MethodDigital,
		CreatedAt:      1700000000000,
	}

	c, err := r.ToCapsule()
	if err != nil {
		t.Fatalf("ToCapsule failed: %v", err)
	}
	want := "https://picsum.photos/seed/1700000000000/512/512?grayscale"
	if c.CoverImageURL != want {
		t.Errorf("CoverImageURL = %q, want %q", c.CoverImageURL, want)
	}
}

func TestCapsule_JSONWireShape(t *testing.T) {
	c := &Capsule{
		ID:            "01J0000000000000000000000C",
		RecipientName: "Ada",
		DeliveryDate:  time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC),
		Message:       "hi",
		CoverImageURL: "https://example.com/c.png",
		Delivery: Digital{
			Email:      "ada@example.com",
			Attachment: &AttachmentFile{Name: "n.txt", Type: "text/plain", Data: "aGk="},
		},
		CreatedAt: 1700000000000,
	}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"deliveryMethod":"digital"`, `"deliveryDate":"2031-01-01"`, `"recipientEmail":"ada@example.com"`, `"isSealed":false`} {
		if !strings.Contains(s, want) {
			t.Errorf("JSON missing %s: %s", want, s)
		}
	}
	if strings.Contains(s, "recipientAddress") {
		t.Errorf("digital JSON should omit recipientAddress: %s", s)
	}

	var decoded Capsule
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Attachment() == nil || decoded.Attachment().Name != "n.txt" {
		t.Errorf("attachment lost in JSON: %+v", decoded.Attachment())
	}
}

func TestFormatDate(t *testing.T) {
	midnight := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := FormatDate(midnight); got != "2031-01-01" {
		t.Errorf("FormatDate(midnight) = %q", got)
	}

	afternoon := time.Date(2031, 1, 1, 14, 5, 0, 0, time.UTC)
	if got := FormatDate(afternoon); got != "2031-01-01T14:05:00Z" {
		t.Errorf("FormatDate(afternoon) = %q", got)
	}

	fractional := time.Date(2031, 1, 1, 10, 0, 0, 900_000_000, time.UTC)
	got := FormatDate(fractional)
	if got != "2031-01-01T10:00:00.9Z" {
		t.Errorf("FormatDate(fractional) = %q", got)
	}
	back, err := ParseDate(got)
	if err != nil {
		t.Fatalf("ParseDate(%q) failed: %v", got, err)
	}
	if !back.Equal(fractional) {
		t.Errorf("round trip = %v, want %v", back, fractional)
	}
}

func TestParseDate_DateTimeLocalIsLocalTime(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	orig := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = orig })

	got, err := ParseDate("2031-01-01T10:30")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	want := time.Date(2031, 1, 1, 8, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDate = %v, want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", got.Location())
	}
}

func TestClone_Independent(t *testing.T) {
	c := &Capsule{
		ID:       "x",
		Message:  "original",
		Delivery: Digital{Email: "a@b.com", Attachment: &AttachmentFile{Name: "a"}},
	}

	cp := c.Clone()
	cp.Message = "changed"
	cp.Attachment().Name = "b"

	if c.Message != "original" {
		t.Error("Clone shares Message")
	}
	if c.Attachment().Name != "a" {
		t.Error("Clone shares the attachment")
	}
}

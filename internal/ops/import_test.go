package ops

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/timeless/internal/capsule"
	"github.com/hpungsan/timeless/internal/errors"
)

func writeExportFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	header, _ := json.Marshal(ExportHeader{TimelessExport: true, SchemaVersion: ExportSchemaVersion, ExportedAt: testNow.Unix()})
	body := string(header) + "\n" + strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write export: %v", err)
	}
}

func recordLine(t *testing.T, r capsule.Record) string {
	t.Helper()
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func digitalRecord(id, name string) capsule.Record {
	return capsule.Record{
		ID:             id,
		RecipientName:  name,
		RecipientEmail: "x@example.com",
		DeliveryDate:   "2031-01-01",
		Message:        "hello",
		CoverImageURL:  "https://img.example/c.png",
		DeliveryMethod: capsule.MethodDigital,
	}
}

func TestImport_HappyPath(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(t.TempDir(), "in.jsonl")

	sealed := digitalRecord("01IMP002", "Bea")
	sealed.IsSealed = true
	writeExportFile(t, path, recordLine(t, digitalRecord("01IMP001", "Abe")), recordLine(t, sealed))

	out, err := Import(context.Background(), s, unsafePathsConfig(), ImportInput{Path: path})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 2 || out.Skipped != 0 || len(out.Errors) != 0 {
		t.Errorf("out = %+v", out)
	}

	c, err := s.Get("01IMP002")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !c.IsSealed {
		t.Error("seal state should be restored")
	}
}

func TestImport_ModeErrorIsAtomic(t *testing.T) {
	b := newTestBuilder(newTestStore(t), &fakeGenerator{})
	existing := mustCreate(t, b, digitalInput("Ada", "2031-01-01")).ID

	path := filepath.Join(t.TempDir(), "in.jsonl")
	writeExportFile(t, path,
		recordLine(t, digitalRecord("01IMP001", "Abe")),
		recordLine(t, digitalRecord(existing, "Clash")),
	)

	out, err := Import(context.Background(), b.store, unsafePathsConfig(), ImportInput{Path: path})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 0 || len(out.Errors) != 1 || out.Errors[0].Code != "ID_COLLISION" || out.Errors[0].Line != 3 {
		t.Errorf("out = %+v", out)
	}
	if b.store.Len() != 1 {
		t.Errorf("Len = %d; error mode must import nothing", b.store.Len())
	}
}

func TestImport_ModeSkip(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(t.TempDir(), "in.jsonl")

	noMessage := digitalRecord("01IMP003", "Cara")
	noMessage.Message = " "
	badMethod := digitalRecord("01IMP004", "Dan")
	badMethod.DeliveryMethod = "carrier-pigeon"

	writeExportFile(t, path,
		recordLine(t, digitalRecord("01IMP001", "Abe")),
		"{not json",
		recordLine(t, digitalRecord("01IMP001", "Dup")),
		recordLine(t, noMessage),
		recordLine(t, badMethod),
	)

	out, err := Import(context.Background(), s, unsafePathsConfig(), ImportInput{Path: path, Mode: ImportModeSkip})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 1 || out.Skipped != 4 {
		t.Errorf("Imported = %d, Skipped = %d", out.Imported, out.Skipped)
	}

	codes := map[string]int{}
	for _, e := range out.Errors {
		codes[e.Code]++
	}
	if codes["PARSE_ERROR"] != 1 || codes["ID_COLLISION"] != 1 || codes["INVALID_RECORD"] != 2 {
		t.Errorf("error codes = %v", codes)
	}
	if c, _ := s.Get("01IMP001"); c.RecipientName != "Abe" {
		t.Error("first occurrence of an id wins")
	}
}

func TestImport_IncompleteRecords(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(t.TempDir(), "in.jsonl")

	noEmail := digitalRecord("01INC001", "Abe")
	noEmail.RecipientEmail = ""
	noAddress := digitalRecord("01INC002", "Bea")
	noAddress.DeliveryMethod = capsule.MethodPhysical
	noCover := digitalRecord("01INC003", "Cy")
	noCover.CoverImageURL = ""
	noCover.CreatedAt = 1700000000000

	writeExportFile(t, path,
		recordLine(t, noEmail),
		recordLine(t, noAddress),
		recordLine(t, noCover),
	)

	out, err := Import(context.Background(), s, unsafePathsConfig(), ImportInput{Path: path, Mode: ImportModeSkip})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 1 || out.Skipped != 2 {
		t.Errorf("Imported = %d, Skipped = %d", out.Imported, out.Skipped)
	}
	for _, e := range out.Errors {
		if e.Code != "INVALID_RECORD" {
			t.Errorf("unexpected error %+v", e)
		}
	}

	c, err := s.Get("01INC003")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if want := "https://picsum.photos/seed/1700000000000/512/512?grayscale"; c.CoverImageURL != want {
		t.Errorf("CoverImageURL = %q, want %q", c.CoverImageURL, want)
	}
}

func TestImport_NewerSchemaRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.jsonl")
	header, _ := json.Marshal(ExportHeader{TimelessExport: true, SchemaVersion: ExportSchemaVersion + 1})
	if err := os.WriteFile(path, append(header, '\n'), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := Import(context.Background(), newTestStore(t), unsafePathsConfig(), ImportInput{Path: path})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(out.Errors) != 1 || out.Errors[0].Code != "UNSUPPORTED_VERSION" {
		t.Errorf("out = %+v", out)
	}
}

func TestImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(newTestStore(t), &fakeGenerator{image: "https://img.example/c.png"})
	id := mustCreate(t, b, physicalInput("Grace", "2031-01-01")).ID
	mustCreate(t, b, digitalInput("Ada", "2032-01-01"))
	if _, err := Seal(ctx, b.store, id); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "round.jsonl")
	if _, err := Export(ctx, b.store, unsafePathsConfig(), ExportInput{Path: path}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	fresh := newTestStore(t)
	out, err := Import(ctx, fresh, unsafePathsConfig(), ImportInput{Path: path})
	if err != nil || out.Imported != 2 {
		t.Fatalf("Import: %+v, %v", out, err)
	}

	for _, want := range b.store.All() {
		got, err := fresh.Get(want.ID)
		if err != nil {
			t.Fatalf("missing %s after round trip", want.ID)
		}
		if got.ToRecord() != want.ToRecord() {
			t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got.ToRecord(), want.ToRecord())
		}
	}
}

func TestImport_InputErrors(t *testing.T) {
	s := newTestStore(t)
	cfg := unsafePathsConfig()

	if _, err := Import(context.Background(), s, cfg, ImportInput{}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("missing path: %v", err)
	}
	if _, err := Import(context.Background(), s, cfg, ImportInput{Path: "/tmp/x.jsonl", Mode: "replace"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("bad mode: %v", err)
	}
	missing := filepath.Join(t.TempDir(), "missing.jsonl")
	if _, err := Import(context.Background(), s, cfg, ImportInput{Path: missing}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing file: %v", err)
	}
}

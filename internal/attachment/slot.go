package attachment

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/timeless/internal/capsule"
	"github.com/hpungsan/timeless/internal/errors"
)

// Slot holds at most one attachment for a capsule being composed.
// Setting a file or starting a recording discards whatever was there.
type Slot struct {
	mu       sync.Mutex
	file     *capsule.AttachmentFile
	label    string
	recorder *Recorder
}

// Set replaces the slot's content with f.
func (s *Slot) Set(f *capsule.AttachmentFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopActiveLocked()
	s.file = f
	s.label = ""
	if f != nil {
		s.label = f.Name
	}
	s.recorder = nil
}

// BeginRecording clears the slot and starts a recorder on mic.
func (s *Slot) BeginRecording(ctx context.Context, mic Microphone, maxBytes int64, now func() time.Time) (*Recorder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopActiveLocked()
	s.file = nil
	s.label = ""
	rec := NewRecorder(maxBytes, now)
	if err := rec.Start(ctx, mic); err != nil {
		s.recorder = nil
		return nil, err
	}
	s.recorder = rec
	return rec, nil
}

// stopActiveLocked ends a recording still in progress so its microphone is
// released. The captured audio is discarded. Caller holds s.mu.
func (s *Slot) stopActiveLocked() {
	if s.recorder != nil && s.recorder.Recording() {
		_, _ = s.recorder.Stop()
	}
}

// Recorder returns the active or last recorder, if any.
func (s *Slot) Recorder() *Recorder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder
}

// FinishRecording stops the active recorder and stores its output.
func (s *Slot) FinishRecording() (*Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recorder == nil {
		return nil, errors.NewInvalidRequest("recording is not in progress")
	}
	rec, err := s.recorder.Stop()
	if err != nil {
		return nil, err
	}
	s.file = rec.File
	s.label = rec.Label
	return rec, nil
}

// File returns the held attachment, or nil.
func (s *Slot) File() *capsule.AttachmentFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file
}

// Label returns the display name of the held attachment.
func (s *Slot) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

// Clear empties the slot.
func (s *Slot) Clear() {
	s.Set(nil)
}

// DraftTTL is how long an unused draft slot is kept.
const DraftTTL = time.Hour

// Drafts tracks attachment slots for capsules still being composed,
// keyed by an opaque id handed to the client.
type Drafts struct {
	mu    sync.Mutex
	now   func() time.Time
	slots map[string]*draft
}

type draft struct {
	slot    *Slot
	touched time.Time
}

// NewDrafts creates an empty registry. A nil now uses time.Now.
func NewDrafts(now func() time.Time) *Drafts {
	if now == nil {
		now = time.Now
	}
	return &Drafts{now: now, slots: make(map[string]*draft)}
}

// New registers an empty slot and returns its id.
func (d *Drafts) New() (string, *Slot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.purgeLocked(now)

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", nil, errors.NewInternal(err)
	}
	slot := &Slot{}
	d.slots[id.String()] = &draft{slot: slot, touched: now}
	return id.String(), slot, nil
}

// Get returns the slot for id.
func (d *Drafts) Get(id string) (*Slot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dr, ok := d.slots[id]
	if !ok {
		return nil, errors.NewNotFound("recording " + id)
	}
	dr.touched = d.now()
	return dr.slot, nil
}

// Take removes the slot for id and returns its attachment.
// Unknown ids yield nil.
func (d *Drafts) Take(id string) *capsule.AttachmentFile {
	d.mu.Lock()
	dr, ok := d.slots[id]
	delete(d.slots, id)
	d.mu.Unlock()

	if !ok {
		return nil
	}
	return dr.slot.File()
}

// Len returns the number of live drafts.
func (d *Drafts) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.slots)
}

func (d *Drafts) purgeLocked(now time.Time) {
	for id, dr := range d.slots {
		if now.Sub(dr.touched) > DraftTTL {
			delete(d.slots, id)
		}
	}
}

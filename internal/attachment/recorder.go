package attachment

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/hpungsan/timeless/internal/capsule"
	"github.com/hpungsan/timeless/internal/errors"
)

// RecordingType is the MIME type of recorded audio.
const RecordingType = "audio/webm"

// Microphone is an audio input that must be opened before segments flow.
type Microphone interface {
	Open(ctx context.Context) error
	Close() error
}

// GrantedMicrophone is a Microphone whose permission was already granted
// elsewhere, such as in the browser that streams the segments.
type GrantedMicrophone struct{}

func (GrantedMicrophone) Open(context.Context) error { return nil }
func (GrantedMicrophone) Close() error               { return nil }

// DeniedMicrophone always refuses to open.
type DeniedMicrophone struct {
	Reason string
}

func (d DeniedMicrophone) Open(context.Context) error {
	reason := d.Reason
	if reason == "" {
		reason = "permission denied"
	}
	return fmt.Errorf("%s", reason)
}

func (DeniedMicrophone) Close() error { return nil }

// Recorder is one audio capture session. Segments are written as they
// arrive and joined into a single blob on Stop.
type Recorder struct {
	mu       sync.Mutex
	mic      Microphone
	now      func() time.Time
	maxBytes int64

	started   time.Time
	stoppedAt time.Time
	segments  [][]byte
	size      int64
	recording bool
}

// NewRecorder creates an idle recorder. A nil now uses time.Now.
func NewRecorder(maxBytes int64, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Recorder{now: now, maxBytes: maxBytes}
}

// Start opens mic and begins a new session. A refused microphone yields
// MICROPHONE_DENIED and leaves the recorder idle.
func (r *Recorder) Start(ctx context.Context, mic Microphone) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return errors.NewBusy()
	}
	if err := mic.Open(ctx); err != nil {
		return errors.NewMicrophoneDenied(err)
	}

	r.mic = mic
	r.started = r.now()
	r.stoppedAt = time.Time{}
	r.segments = nil
	r.size = 0
	r.recording = true
	return nil
}

// Write appends one segment. It implements io.Writer.
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return 0, errors.NewInvalidRequest("recording is not in progress")
	}
	if r.size+int64(len(p)) > r.maxBytes {
		return 0, errors.NewAttachmentTooLarge(r.maxBytes, r.size+int64(len(p)))
	}
	seg := make([]byte, len(p))
	copy(seg, p)
	r.segments = append(r.segments, seg)
	r.size += int64(len(p))
	return len(p), nil
}

// Stop ends the session and returns the joined recording.
func (r *Recorder) Stop() (*Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return nil, errors.NewInvalidRequest("recording is not in progress")
	}
	r.recording = false
	r.stoppedAt = r.now()
	if r.mic != nil {
		_ = r.mic.Close()
	}

	data := bytes.Join(r.segments, nil)
	r.segments = nil

	elapsed := r.stoppedAt.Sub(r.started)
	file := FromBytes(RecordingName(r.started), RecordingType, data)
	return &Recording{
		File:     file,
		Duration: elapsed,
		Label:    "Voice Recording (" + FormatElapsed(elapsed) + ")",
	}, nil
}

// Recording reports whether a session is active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Elapsed returns the time recorded so far, or the final duration after Stop.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.started.IsZero():
		return 0
	case r.recording:
		return r.now().Sub(r.started)
	default:
		return r.stoppedAt.Sub(r.started)
	}
}

// Recording is a finished capture.
type Recording struct {
	File     *capsule.AttachmentFile
	Duration time.Duration

	// Label is the human name shown in place of the file name
	Label string
}

// RecordingName is the file name given to a recording started at t.
func RecordingName(t time.Time) string {
	return "voice-recording-" + strconv.FormatInt(t.UnixMilli(), 10) + ".webm"
}

// FormatElapsed renders whole seconds as m:ss.
func FormatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

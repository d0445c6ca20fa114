package devtools

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/vango-dev/reactive/internal/errors"
)

// Recorder writes events as JSON lines. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	buf    *bufio.Writer
	enc    *json.Encoder
	finish func() error
	events int
	err    error
	closed bool
}

// NewRecorder records to w. Close flushes but does not close w.
func NewRecorder(w io.Writer) *Recorder {
	return newRecorder(w, nil)
}

func newRecorder(w io.Writer, finish func() error) *Recorder {
	buf := bufio.NewWriter(w)
	return &Recorder{buf: buf, enc: json.NewEncoder(buf), finish: finish}
}

// CreateFileRecorder records to a new file at path.
func CreateFileRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.New("E103").WithDetail("Cannot create " + path).Wrap(err)
	}
	return newRecorder(f, f.Close), nil
}

// Publish implements Sink. The first write error is kept and returned by
// Close; later events are discarded.
func (r *Recorder) Publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.err != nil {
		return
	}
	if err := r.enc.Encode(ev); err != nil {
		r.err = err
		return
	}
	r.events++
}

// Events returns the number of events recorded so far.
func (r *Recorder) Events() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events
}

// Close flushes buffered events and finishes the destination: files are
// closed and S3 recordings are uploaded. Close is idempotent.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.err
	}
	r.closed = true

	if err := r.buf.Flush(); err != nil && r.err == nil {
		r.err = err
	}
	if r.finish != nil {
		if err := r.finish(); err != nil && r.err == nil {
			r.err = err
		}
	}
	return r.err
}

// RecordingOptions configures OpenRecording.
type RecordingOptions struct {
	// Region and Endpoint configure the S3 client for s3:// destinations.
	Region   string
	Endpoint string

	// Prefix is prepended to the object key.
	Prefix string

	// Client overrides the S3 client.
	Client PutObjectAPI
}

// OpenRecording opens a recorder for dest, a file path or an
// s3://bucket/key URL.
func OpenRecording(ctx context.Context, dest string, opts RecordingOptions) (*Recorder, error) {
	if dest == "" {
		return nil, errors.New("E103").WithDetail("Empty recording destination")
	}
	if !strings.HasPrefix(dest, "s3://") {
		return CreateFileRecorder(dest)
	}

	bucket, key, err := ParseS3URL(dest)
	if err != nil {
		return nil, err
	}
	client := opts.Client
	if client == nil {
		client = NewS3Client(opts.Region, opts.Endpoint)
	}
	return NewS3Recorder(ctx, client, bucket, opts.Prefix+key), nil
}

// ReadRecording decodes a JSON lines recording.
func ReadRecording(r io.Reader) ([]Event, error) {
	var events []Event
	dec := json.NewDecoder(r)
	for {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			if err == io.EOF {
				return events, nil
			}
			return events, err
		}
		events = append(events, ev)
	}
}

// bufferRecorder records into memory and hands the bytes to upload on Close.
func bufferRecorder(upload func(data []byte) error) *Recorder {
	var data bytes.Buffer
	return newRecorder(&data, func() error { return upload(data.Bytes()) })
}

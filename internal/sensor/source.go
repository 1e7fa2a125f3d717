package sensor

import (
	"context"
	"errors"
	"fmt"

	"github.com/Faultbox/depthmesh/internal/body"
)

// ErrFrameNotReady is returned by an Acquire call when the driver has no new
// frame since the previous call. Callers keep their previous contents.
var ErrFrameNotReady = errors.New("frame not ready")

// Session stages reported by SessionError.
const (
	StageOpen             = "open sensor"
	StageDepthReader      = "open depth reader"
	StageColorReader      = "open color reader"
	StageBodyIndexReader  = "open body index reader"
	StageBodyReader       = "open body reader"
	StageCoordinateMapper = "get coordinate mapper"
)

// SessionError reports which stage of session start-up failed.
type SessionError struct {
	Stage string
	Err   error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// StageError wraps err in a SessionError for stage.
func StageError(stage string, err error) error {
	return &SessionError{Stage: stage, Err: err}
}

// OpenOptions selects the optional streams of a session.
type OpenOptions struct {
	BodyIndex bool
	Bodies    bool
}

// Description reports the stream sizes of an open session.
type Description struct {
	Depth     Size
	Color     Size
	BodyIndex Size // zero when the body-index stream is closed
}

// FrameSource is a sensor driver session. Acquire calls copy the latest frame
// into dst (whose storage is reused) or return ErrFrameNotReady.
type FrameSource interface {
	Open(ctx context.Context, opts OpenOptions) (Description, error)
	AcquireDepth(dst *DepthGrid) error
	AcquireColor(dst *ColorGrid) error
	AcquireBodyIndex(dst *BodyIndexGrid) error
	Mapper() (CoordinateMapper, error)
	Close() error
}

// BodySource is implemented by frame sources that track skeletons.
type BodySource interface {
	AcquireBodies(dst []body.Body) error
}

// Package body holds the skeleton tracking state exposed to the host for each
// body slot reported by the sensor.
package body

import (
	"fmt"

	"github.com/Faultbox/depthmesh/pkg/math"
)

const (
	// Count is the number of body slots a sensor reports.
	Count = 6
	// JointCount is the number of joints per body.
	JointCount = 25
)

// HandState describes what a tracked hand is doing.
type HandState uint8

const (
	HandUnknown HandState = iota
	HandNotTracked
	HandOpen
	HandClosed
	HandLasso
)

var handStateNames = [...]string{"unknown", "not_tracked", "open", "closed", "lasso"}

func (h HandState) String() string {
	if int(h) < len(handStateNames) {
		return handStateNames[h]
	}
	return fmt.Sprintf("HandState(%d)", h)
}

// TrackingState describes how confidently a joint was located.
type TrackingState uint8

const (
	NotTracked TrackingState = iota
	Inferred
	Tracked
)

var trackingStateNames = [...]string{"not_tracked", "inferred", "tracked"}

func (s TrackingState) String() string {
	if int(s) < len(trackingStateNames) {
		return trackingStateNames[s]
	}
	return fmt.Sprintf("TrackingState(%d)", s)
}

// JointType identifies a joint. Values follow the sensor's joint order.
type JointType uint8

const (
	SpineBase JointType = iota
	SpineMid
	Neck
	Head
	ShoulderLeft
	ElbowLeft
	WristLeft
	HandLeft
	ShoulderRight
	ElbowRight
	WristRight
	HandRight
	HipLeft
	KneeLeft
	AnkleLeft
	FootLeft
	HipRight
	KneeRight
	AnkleRight
	FootRight
	SpineShoulder
	HandTipLeft
	ThumbLeft
	HandTipRight
	ThumbRight
)

// Joint is one skeleton joint in world space (centimetres, forward/right/up).
type Joint struct {
	Type        JointType
	Position    math.Vec3
	Orientation math.Quat
	State       TrackingState
}

// Body is the tracking state of one body slot.
type Body struct {
	Tracked   bool
	Joints    []Joint
	LeftHand  HandState
	RightHand HandState
}

// New returns an untracked body with all joints allocated.
func New() Body {
	b := Body{Joints: make([]Joint, JointCount)}
	b.Reset()
	return b
}

// NewSet returns Count untracked bodies.
func NewSet() []Body {
	set := make([]Body, Count)
	for i := range set {
		set[i] = New()
	}
	return set
}

// Reset marks the body untracked and clears every joint.
func (b *Body) Reset() {
	b.Tracked = false
	b.LeftHand = HandUnknown
	b.RightHand = HandUnknown
	for i := range b.Joints {
		b.Joints[i] = Joint{Type: JointType(i), Orientation: math.QuatIdentity()}
	}
}

// Joint returns the joint of the given type.
func (b Body) Joint(t JointType) (Joint, bool) {
	if int(t) >= len(b.Joints) {
		return Joint{}, false
	}
	return b.Joints[t], true
}

// CopyFrom overwrites b with src, reusing b's joint storage.
func (b *Body) CopyFrom(src Body) {
	b.Tracked = src.Tracked
	b.LeftHand = src.LeftHand
	b.RightHand = src.RightHand
	if cap(b.Joints) < len(src.Joints) {
		b.Joints = make([]Joint, len(src.Joints))
	}
	b.Joints = b.Joints[:len(src.Joints)]
	copy(b.Joints, src.Joints)
}

// CopySet copies every body of src into dst, reusing dst's storage.
func CopySet(dst, src []Body) {
	for i := range dst {
		if i < len(src) {
			dst[i].CopyFrom(src[i])
		} else {
			dst[i].Reset()
		}
	}
}

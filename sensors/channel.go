package sensors

import "strings"

// Channel identifies one measurement stream the IMU can report.
type Channel uint8

const (
	Acceleration Channel = iota
	Gyroscope
	Magnetometer
	LinearAcceleration
	RotationVector
	GeomagneticRotationVector
	GameRotationVector
	RawAcceleration
	RawGyroscope
	RawMagnetometer

	numChannels
)

var channelNames = [numChannels]string{
	Acceleration:              "acceleration",
	Gyroscope:                 "gyroscope",
	Magnetometer:              "magnetometer",
	LinearAcceleration:        "linear_acceleration",
	RotationVector:            "rotation_vector",
	GeomagneticRotationVector: "geomagnetic_rotation_vector",
	GameRotationVector:        "game_rotation_vector",
	RawAcceleration:           "raw_acceleration",
	RawGyroscope:              "raw_gyroscope",
	RawMagnetometer:           "raw_magnetometer",
}

var channelsByName map[string]Channel

func init() {
	channelsByName = make(map[string]Channel, numChannels)
	for c, name := range channelNames {
		channelsByName[name] = Channel(c)
	}
}

// AllChannels returns every channel in declaration order.
func AllChannels() []Channel {
	all := make([]Channel, numChannels)
	for i := range all {
		all[i] = Channel(i)
	}
	return all
}

// ParseChannel looks up a channel by name. Both "rotation_vector" and the
// older "rotation vector" spelling are accepted, in any case.
func ParseChannel(name string) (Channel, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	c, ok := channelsByName[key]
	return c, ok
}

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	return c < numChannels
}

func (c Channel) String() string {
	if !c.Valid() {
		return "unknown"
	}
	return channelNames[c]
}

// Arity is the number of components in a reading of c: 4 for the
// quaternion channels, 3 for everything else.
func (c Channel) Arity() int {
	switch c {
	case RotationVector, GeomagneticRotationVector, GameRotationVector:
		return 4
	}
	return 3
}

// Zero returns the zero reading for c.
func (c Channel) Zero() Vector {
	return make(Vector, c.Arity())
}

// Vector is a single reading. Quaternions are ordered i, j, k, real.
type Vector []float64

// Clone returns a copy of v that shares no storage with it.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

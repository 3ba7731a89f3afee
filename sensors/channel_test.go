package sensors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseChannel(t *testing.T) {
	cases := map[string]Channel{
		"acceleration":                Acceleration,
		"gyroscope":                   Gyroscope,
		"magnetometer":                Magnetometer,
		"linear acceleration":         LinearAcceleration,
		"linear_acceleration":         LinearAcceleration,
		"rotation vector":             RotationVector,
		"geomagnetic rotation vector": GeomagneticRotationVector,
		"Game-Rotation-Vector":        GameRotationVector,
		"raw acceleration":            RawAcceleration,
		" raw_gyroscope ":             RawGyroscope,
		"RAW MAGNETOMETER":            RawMagnetometer,
	}
	for name, want := range cases {
		got, ok := ParseChannel(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	for _, name := range []string{"", "sonar", "rotation", "raw"} {
		_, ok := ParseChannel(name)
		assert.False(t, ok, name)
	}
}

func TestChannelNamesRoundTrip(t *testing.T) {
	all := AllChannels()
	assert.Len(t, all, 10)
	for _, c := range all {
		got, ok := ParseChannel(c.String())
		assert.True(t, ok, c.String())
		assert.Equal(t, c, got)
	}
	assert.Equal(t, "unknown", Channel(200).String())
}

func TestArity(t *testing.T) {
	quaternions := map[Channel]bool{
		RotationVector:            true,
		GeomagneticRotationVector: true,
		GameRotationVector:        true,
	}
	for _, c := range AllChannels() {
		want := 3
		if quaternions[c] {
			want = 4
		}
		assert.Equal(t, want, c.Arity(), c.String())
		assert.Equal(t, make(Vector, want), c.Zero(), c.String())
	}
}

func TestVectorClone(t *testing.T) {
	v := Vector{1, 2, 3}
	w := v.Clone()
	w[0] = 5
	assert.Equal(t, Vector{1, 2, 3}, v)
	assert.Nil(t, Vector(nil).Clone())
}

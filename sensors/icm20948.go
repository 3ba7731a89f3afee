package sensors

import (
	"time"

	"github.com/b3nn0/goflying/icm20948"
	"github.com/kidoman/embd"
)

const (
	gyroRange  = 250 // gyroRange is the default range to use for the Gyro.
	accelRange = 4   // accelRange is the default range to use for the Accel.
	updateFreq = 50  // updateFreq is the rate at which to update the sensor values.
)

// OpenICM20948 returns an IMUDevice for an InvenSense ICM-20948 attached on
// the I2C bus with either valid address. The chip runs no fusion, so only
// the accelerometer, gyroscope and magnetometer channels are available.
func OpenICM20948(bus embd.I2CBus) (IMUDevice, error) {
	if bus == nil {
		return nil, fault("icm20948", "open", 0, ErrNotConnected)
	}
	mpu, err := icm20948.NewICM20948(&bus, gyroRange, accelRange, updateFreq, true, false)
	if err != nil {
		return nil, fault("icm20948", "open", 0, err)
	}

	// Set Gyro (Accel) LPFs to 25 Hz to keep reaction-wheel vibration out of the readings.
	mpu.SetGyroLPF(25)
	mpu.SetAccelLPF(25)

	return &mpuDevice{
		name:    "icm20948",
		mag:     mpu.MagEnabled(),
		timeout: 5 * time.Second / updateFreq,
		next: func(timeout time.Duration) (*mpuSample, error) {
			select {
			case data := <-mpu.CAvg:
				if data == nil {
					return nil, ErrNotConnected
				}
				return &mpuSample{
					N:      data.N,
					A:      [3]float64{data.A1, data.A2, data.A3},
					G:      [3]float64{data.G1, data.G2, data.G3},
					M:      [3]float64{data.M1, data.M2, data.M3},
					GAErr:  data.GAError,
					MagErr: data.MagError,
				}, nil
			case <-time.After(timeout):
				return nil, errNoSample
			}
		},
		stop: mpu.CloseMPU,
	}, nil
}

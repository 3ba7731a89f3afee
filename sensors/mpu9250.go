package sensors

import (
	"time"

	"github.com/b3nn0/goflying/mpu9250"
	"github.com/kidoman/embd"
)

// OpenMPU9250 returns an IMUDevice for an InvenSense MPU-9250 attached on the
// I2C bus with either valid address. Like the ICM-20948 it offers the three
// raw sensor channels only.
func OpenMPU9250(bus embd.I2CBus) (IMUDevice, error) {
	if bus == nil {
		return nil, fault("mpu9250", "open", 0, ErrNotConnected)
	}
	mpu, err := mpu9250.NewMPU9250(&bus, gyroRange, accelRange, updateFreq, true, false)
	if err != nil {
		return nil, fault("mpu9250", "open", 0, err)
	}

	// Set Gyro (Accel) LPFs to 20 (21) Hz, the closest the MPU-9250 has to the ICM-20948 setting.
	mpu.SetGyroLPF(21)
	mpu.SetAccelLPF(21)

	return &mpuDevice{
		name:    "mpu9250",
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

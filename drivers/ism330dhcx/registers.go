package ism330dhcx

// I2C addresses (SDO/SA0 low / high).
const (
	AddressLow  = 0x6A
	AddressHigh = 0x6B
)

const whoAmIValue = 0x6B

// Register map (subset used by the driver).
const (
	regFifoCtrl1      = 0x07 // watermark [7:0]
	regFifoCtrl2      = 0x08
	regFifoCtrl3      = 0x09 // BDR_GY[7:4] | BDR_XL[3:0]
	regFifoCtrl4      = 0x0A // FIFO_MODE[2:0]
	regWhoAmI         = 0x0F
	regCtrl1XL        = 0x10 // ODR_XL[7:4] | FS_XL[3:2]
	regCtrl2G         = 0x11 // ODR_G[7:4] | FS_G[3:2]
	regCtrl3C         = 0x12
	regFifoStatus1    = 0x3A // DIFF_FIFO[7:0]
	regFifoStatus2    = 0x3B // flags | DIFF_FIFO[9:8]
	regFifoDataOutTag = 0x78 // tag then 6 data bytes
)

// CTRL3_C bits.
const (
	ctrl3SWReset = 1 << 0
	ctrl3IfInc   = 1 << 2
	ctrl3BDU     = 1 << 6
)

// FIFO_STATUS2 bits.
const (
	fifoStatusOvrLatched = 1 << 3
	fifoStatusFull       = 1 << 5
	fifoStatusOvr        = 1 << 6
	fifoDiffHighMask     = 0x03
)

// FIFO_CTRL4 modes.
const (
	fifoModeBypass     = 0x00
	fifoModeContinuous = 0x06
)

// FIFO tag sensor identifiers (TAG_SENSOR field, bits [7:3]).
const (
	TagGyro  = 0x01
	TagAccel = 0x02
)

// Rate is an output data rate; the same code is used for ODR and batch rate
// fields.
type Rate uint8

const (
	RateOff   Rate = 0x0
	Rate12Hz  Rate = 0x1
	Rate26Hz  Rate = 0x2
	Rate52Hz  Rate = 0x3
	Rate104Hz Rate = 0x4
	Rate208Hz Rate = 0x5
	Rate416Hz Rate = 0x6
	Rate833Hz Rate = 0x7
)

// Hz returns the nominal frequency of r.
func (r Rate) Hz() uint32 {
	switch r {
	case Rate12Hz:
		return 12
	case Rate26Hz:
		return 26
	case Rate52Hz:
		return 52
	case Rate104Hz:
		return 104
	case Rate208Hz:
		return 208
	case Rate416Hz:
		return 416
	case Rate833Hz:
		return 833
	}
	return 0
}

// AccelRange is the FS_XL selection.
type AccelRange uint8

const (
	Accel2G  AccelRange = 0x0
	Accel16G AccelRange = 0x1
	Accel4G  AccelRange = 0x2
	Accel8G  AccelRange = 0x3
)

// sensitivity in mg/LSB.
func (a AccelRange) mgPerLSB() float32 {
	switch a {
	case Accel2G:
		return 0.061
	case Accel4G:
		return 0.122
	case Accel8G:
		return 0.244
	case Accel16G:
		return 0.488
	}
	return 0.122
}

// GyroRange is the FS_G selection.
type GyroRange uint8

const (
	Gyro250DPS  GyroRange = 0x0
	Gyro500DPS  GyroRange = 0x1
	Gyro1000DPS GyroRange = 0x2
	Gyro2000DPS GyroRange = 0x3
)

// FifoDepth is the FIFO size in words.
const FifoDepth = 512

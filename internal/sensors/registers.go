// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

// MPU-6500/9250 register addresses. The two parts share this map for
// everything the acquisition paths touch.
const (
	RegSelfTestXGyro  = 0x00
	RegSmplrtDiv      = 0x19
	RegConfig         = 0x1A
	RegGyroConfig     = 0x1B
	RegAccelConfig    = 0x1C
	RegAccelConfig2   = 0x1D
	RegIntPinCfg      = 0x37
	RegIntEnable      = 0x38
	RegIntStatus      = 0x3A
	RegAccelXoutH     = 0x3B
	RegTempOutH       = 0x41
	RegGyroXoutH      = 0x43
	RegSignalPathRst  = 0x68
	RegUserCtrl       = 0x6A
	RegPwrMgmt1       = 0x6B
	RegPwrMgmt2       = 0x6C
	RegWhoAmI         = 0x75
)

// PWR_MGMT_1 / INT bits used during bring-up and polling.
const (
	BitHReset        = 0x80 // PWR_MGMT_1 device reset
	BitClkSelPLL     = 0x01 // PWR_MGMT_1 auto-select best clock
	BitIntAnyrd2Clr  = 0x10 // INT_PIN_CFG clear interrupt on any read
	BitBypassEn      = 0x02 // INT_PIN_CFG route aux I2C to the host bus
	BitRawRdyEn      = 0x01 // INT_ENABLE raw data ready
	BitRawDataRdyInt = 0x01 // INT_STATUS raw data ready
)

// AK8963 magnetometer registers (on its own I2C address, 0x0C).
const (
	AK8963RegWIA   = 0x00
	AK8963RegSt1   = 0x02
	AK8963RegHXL   = 0x03
	AK8963RegSt2   = 0x09
	AK8963RegCntl1 = 0x0A
	AK8963RegCntl2 = 0x0B
	AK8963RegASAX  = 0x10
)

// AK8963 status and control bits.
const (
	AK8963BitDRDY    = 0x01 // ST1 data ready
	AK8963BitHOFL    = 0x08 // ST2 magnetic overflow
	AK8963Bit16Bit   = 0x10 // CNTL1 16-bit output
	AK8963ModePwrDn  = 0x00
	AK8963ModeFuse   = 0x0F // fuse ROM access (factory sensitivity)
	AK8963Mode100Hz  = 0x06 // continuous measurement 2
	AK8963BitSrst    = 0x01 // CNTL2 soft reset
)

// AK8963I2CAddr is the magnetometer's fixed I2C address, reachable once the
// MPU's bypass mux is enabled.
const AK8963I2CAddr = 0x0C

// WhoAmIMPU9250 is the expected WHO_AM_I response for the MPU-9250.
// The MPU-6500 answers 0x70 on the same register.
const (
	WhoAmIMPU9250 = 0x71
	WhoAmIMPU6500 = 0x70
	WhoAmIAK8963  = 0x48
)

// BitField describes one field inside a register, for the debug dump tool.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RegisterInfo is register metadata consumed by cmd/regdump.
type RegisterInfo struct {
	Address   byte       `json:"address"`
	Name      string     `json:"name"`
	Access    string     `json:"access"`
	BitFields []BitField `json:"bit_fields,omitempty"`
}

// DebugRegisterMap lists the registers worth inspecting when a board refuses
// to produce data.
func DebugRegisterMap() []RegisterInfo {
	return []RegisterInfo{
		{Address: RegSmplrtDiv, Name: "SMPLRT_DIV", Access: "RW"},
		{Address: RegConfig, Name: "CONFIG", Access: "RW",
			BitFields: []BitField{{Bits: "2:0", Name: "DLPF_CFG", Description: "digital low pass filter"}}},
		{Address: RegGyroConfig, Name: "GYRO_CONFIG", Access: "RW",
			BitFields: []BitField{{Bits: "4:3", Name: "GYRO_FS_SEL", Description: "full scale 250/500/1000/2000 dps"}}},
		{Address: RegAccelConfig, Name: "ACCEL_CONFIG", Access: "RW",
			BitFields: []BitField{{Bits: "4:3", Name: "ACCEL_FS_SEL", Description: "full scale 2/4/8/16 g"}}},
		{Address: RegAccelConfig2, Name: "ACCEL_CONFIG2", Access: "RW"},
		{Address: RegIntPinCfg, Name: "INT_PIN_CFG", Access: "RW",
			BitFields: []BitField{
				{Bits: "4", Name: "INT_ANYRD_2CLEAR", Description: "clear interrupt on any read"},
				{Bits: "1", Name: "BYPASS_EN", Description: "aux I2C bypass"},
			}},
		{Address: RegIntEnable, Name: "INT_ENABLE", Access: "RW",
			BitFields: []BitField{{Bits: "0", Name: "RAW_RDY_EN", Description: "raw data ready interrupt"}}},
		{Address: RegIntStatus, Name: "INT_STATUS", Access: "R",
			BitFields: []BitField{{Bits: "0", Name: "RAW_DATA_RDY_INT", Description: "new sample available"}}},
		{Address: RegUserCtrl, Name: "USER_CTRL", Access: "RW"},
		{Address: RegPwrMgmt1, Name: "PWR_MGMT_1", Access: "RW",
			BitFields: []BitField{
				{Bits: "7", Name: "H_RESET", Description: "device reset"},
				{Bits: "6", Name: "SLEEP", Description: "sleep mode"},
				{Bits: "2:0", Name: "CLKSEL", Description: "clock source"},
			}},
		{Address: RegPwrMgmt2, Name: "PWR_MGMT_2", Access: "RW"},
		{Address: RegWhoAmI, Name: "WHO_AM_I", Access: "R",
			BitFields: []BitField{{Bits: "7:0", Name: "WHO_AM_I", Description: "0x71=MPU9250, 0x70=MPU6500"}}},
	}
}

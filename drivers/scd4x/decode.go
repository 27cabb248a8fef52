package scd4x

import "plantsense-go/x/mathx"

// Sample holds one decoded measurement.
type Sample struct {
	CO2     uint16 // ppm
	CentiC  int32  // hundredths of °C
	CentiRH int32  // hundredths of %RH
}

// CRC8 computes the Sensirion checksum (poly 0x31, init 0xFF).
func CRC8(p []byte) byte {
	crc := byte(0xFF)
	for _, b := range p {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// DecodeMeasurement decodes the 9-byte read_measurement frame:
// three big-endian words (co2, temperature, humidity), each followed by CRC.
func DecodeMeasurement(p []byte) (Sample, error) {
	if len(p) < 9 {
		return Sample{}, ErrShort
	}
	var w [3]uint16
	for i := range w {
		f := p[i*3 : i*3+3]
		if CRC8(f[:2]) != f[2] {
			return Sample{}, ErrCRC
		}
		w[i] = uint16(f[0])<<8 | uint16(f[1])
	}
	return Sample{
		CO2:     w[0],
		CentiC:  CentiCelsius(w[1]),
		CentiRH: CentiRelHumidity(w[2]),
	}, nil
}

// DecodeLegacy decodes the 6-byte frame of the legacy layout: co2 from
// bytes [0,1], temperature from [3,4] and humidity from [4,5], both in
// hundredths. Bytes are taken as-is; there is no CRC to check.
func DecodeLegacy(p []byte) (Sample, error) {
	if len(p) < 6 {
		return Sample{}, ErrShort
	}
	return Sample{
		CO2:     be16(p[0:]),
		CentiC:  int32(be16(p[3:])),
		CentiRH: int32(be16(p[4:])),
	}, nil
}

// CentiCelsius converts a raw temperature word: T = -45 + 175*w/65535, rounded.
func CentiCelsius(w uint16) int32 {
	return -4500 + int32(mathx.RoundDiv(17500*uint32(w), 65535))
}

// CentiRelHumidity converts a raw humidity word: RH = 100*w/65535, rounded.
func CentiRelHumidity(w uint16) int32 {
	return int32(mathx.RoundDiv(10000*uint32(w), 65535))
}

func be16(p []byte) uint16 { return uint16(p[0])<<8 | uint16(p[1]) }

package codestream

// JPEG 2000 marker codes
// Reference: ISO/IEC 15444-1:2019 Table A.1

// Delimiting markers
const (
	MarkerSOC uint16 = 0xFF4F // start of codestream
	MarkerSOT uint16 = 0xFF90 // start of tile-part
	MarkerSOD uint16 = 0xFF93 // start of data
	MarkerEOC uint16 = 0xFFD9 // end of codestream
)

// Fixed and functional marker segments
const (
	MarkerSIZ uint16 = 0xFF51
	MarkerCOD uint16 = 0xFF52
	MarkerCOC uint16 = 0xFF53
	MarkerQCD uint16 = 0xFF5C
	MarkerQCC uint16 = 0xFF5D
	MarkerRGN uint16 = 0xFF5E
	MarkerPOC uint16 = 0xFF5F
)

// Pointer and informational marker segments
const (
	MarkerTLM uint16 = 0xFF55
	MarkerPLM uint16 = 0xFF57
	MarkerPLT uint16 = 0xFF58
	MarkerPPM uint16 = 0xFF60
	MarkerPPT uint16 = 0xFF61
	MarkerCRG uint16 = 0xFF63
	MarkerCOM uint16 = 0xFF64
)

// In-bitstream markers
const (
	MarkerSOP uint16 = 0xFF91
	MarkerEPH uint16 = 0xFF92
)

var markerNames = map[uint16]string{
	MarkerSOC: "SOC", MarkerSOT: "SOT", MarkerSOD: "SOD", MarkerEOC: "EOC",
	MarkerSIZ: "SIZ", MarkerCOD: "COD", MarkerCOC: "COC", MarkerQCD: "QCD",
	MarkerQCC: "QCC", MarkerRGN: "RGN", MarkerPOC: "POC", MarkerTLM: "TLM",
	MarkerPLM: "PLM", MarkerPLT: "PLT", MarkerPPM: "PPM", MarkerPPT: "PPT",
	MarkerCRG: "CRG", MarkerCOM: "COM", MarkerSOP: "SOP", MarkerEPH: "EPH",
}

// MarkerName returns the mnemonic of a marker code
func MarkerName(marker uint16) string {
	if name, ok := markerNames[marker]; ok {
		return name
	}
	return "UNKNOWN"
}

// ignorable reports whether a header marker can be skipped without changing
// how the tile data decodes
func ignorable(marker uint16) bool {
	switch marker {
	case MarkerTLM, MarkerPLM, MarkerPLT, MarkerCRG, MarkerCOM:
		return true
	}
	return false
}

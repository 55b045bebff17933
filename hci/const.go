package hci

// H4 packet type bytes. Only commands go out of this host; the data and
// event types exist for framing the inbound direction.
const (
	pktTypeCommand uint8 = 0x01
	pktTypeACLData uint8 = 0x02
	pktTypeSCOData uint8 = 0x03
	pktTypeEvent   uint8 = 0x04
)

// Opcode group fields.
const (
	ogfHostCtl uint16 = 0x03
	ogfLECtl   uint16 = 0x08

	ogfVendorSpecificDebug uint16 = 0x3f

	ogfBitShift = 10
)

// Opcode command fields of the commands this host sends.
const (
	ocfReset                  uint16 = 0x0003
	ocfLESetAdvertisingParams uint16 = 0x0006
	ocfLESetAdvertisingData   uint16 = 0x0008
	ocfLESetScanRespData      uint16 = 0x0009
	ocfLESetAdvertiseEnable   uint16 = 0x000A
)

// Package protocol implements the framed serial link used by the cropper's
// diagnostics port.
//
// A frame is
//
//	<length> <sequence> <payload ...> <crc16 hi> <crc16 lo> <0x7E>
//
// where length counts the whole frame, the sequence byte carries 0x10 in its
// high nibble and a 4-bit counter in the low nibble, and the payload is a
// run of VLQ-encoded message IDs each followed by its arguments. A frame
// with an empty payload acknowledges everything up to its sequence.
package protocol

// Frame layout
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F

	// ScratchSize is the capacity of a ScratchOutput. It holds several
	// frames so a burst of responses can be flushed in one write.
	ScratchSize = 512
)

// NextSequence returns the sequence byte that follows seq
func NextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}

// Package yapb implements a compact tagged binary packet format.
//
// A packet is a caller-owned byte buffer that starts with a self-inclusive
// length header and carries typed elements back to back:
//
//	Offset  Size  Description
//	------  ----  -----------
//	0       4     Total packet length (big-endian uint32, includes these 4 bytes)
//	4       …     Elements (variable count)
//
// Each element:
//
//	0  1   Type tag
//	1  …   Value (big-endian)
//
// Type tags:
//
//	0x00  int8     1 byte
//	0x01  int16    2 bytes
//	0x02  int32    4 bytes
//	0x03  int64    8 bytes
//	0x04  float    4 bytes, IEEE-754 bit pattern
//	0x05  double   8 bytes, IEEE-754 bit pattern
//	0x06  …        0x0D reserved
//	0x0E  blob     2-byte length followed by raw bytes
//	0x0F  nested   a complete packet, header included
//
// Unsigned integers share the signed tags; the bits are identical.
//
// Errors are sticky. Once an operation fails, every later push or pop on the
// same packet returns the same Result without touching the buffer, the cursor
// or any output argument. A sequence of pops can therefore be checked once at
// the end with Status.
//
// Pops never modify their output on failure. Callers pre-seed fields with
// defaults and read packets written by older producers without special cases:
//
//	version := uint16(1) // default for packets that predate the field
//	pkt.PopUint16(&version)
//
// Blob and nested pops return views into the loaded buffer. They stay valid
// only while that buffer is alive and unmodified. A Packet is a cursor and
// must not be shared between goroutines without external locking.
package yapb

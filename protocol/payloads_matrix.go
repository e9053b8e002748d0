package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

func init() {
	register(StateDeviceChain, decodeStateDeviceChain)
	register(State64, decodeState64)
}

// TileCount is the fixed array size of a device chain's tile slots.
const TileCount = 16

// Tile64Pixels is the number of pixel slots addressed by one Set64/State64
// packet (firmware always uses an 8x8 = 64 window regardless of the tile's
// actual reported width/height).
const Tile64Pixels = 64

// TileDevice describes one tile's position and geometry within a chain.
type TileDevice struct {
	AccelMeasX, AccelMeasY, AccelMeasZ int16
	UserX, UserY                       float32
	Width, Height                      uint8
	DeviceVersionVendor                uint32
	DeviceVersionProduct               uint32
	FirmwareBuild                      time.Time
	FirmwareVersionMinor               uint16
	FirmwareVersionMajor               uint16
}

// tileDeviceSize covers accel(6)+reserved(2)+userX/Y(8)+width/height(2)+
// reserved(2)+deviceVersion(8)+reserved(4)+firmwareBuild(8)+reserved(8)+
// firmwareVersion(4) = 52 bytes per tile slot.
const tileDeviceSize = 6 + 2 + 8 + 2 + 2 + 8 + 4 + 8 + 8 + 4

// StateDeviceChainPacket reports the tiles in a matrix device's chain.
type StateDeviceChainPacket struct {
	StartIndex int
	Tiles      []TileDevice
	TotalCount int
}

func (StateDeviceChainPacket) Type() PacketType { return StateDeviceChain }

func decodeStateDeviceChain(p []byte) (Packet, error) {
	if len(p) != 1+TileCount*tileDeviceSize+1 {
		return nil, fmt.Errorf("StateDeviceChain: bad length %d", len(p))
	}
	start := int(p[0])
	total := int(p[len(p)-1])
	tiles := make([]TileDevice, TileCount)
	off := 1
	for i := 0; i < TileCount; i++ {
		b := p[off : off+tileDeviceSize]
		tiles[i] = TileDevice{
			AccelMeasX: int16(binary.LittleEndian.Uint16(b[0:2])),
			AccelMeasY: int16(binary.LittleEndian.Uint16(b[2:4])),
			AccelMeasZ: int16(binary.LittleEndian.Uint16(b[4:6])),
			// b[6:8] reserved
			UserX:  math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])),
			UserY:  math.Float32frombits(binary.LittleEndian.Uint32(b[12:16])),
			Width:  b[16],
			Height: b[17],
			// b[18:20] reserved
			DeviceVersionVendor:  binary.LittleEndian.Uint32(b[20:24]),
			DeviceVersionProduct: binary.LittleEndian.Uint32(b[24:28]),
			// b[28:32] reserved
			FirmwareBuild: time.Unix(0, int64(binary.LittleEndian.Uint64(b[32:40]))).UTC(),
			// b[40:48] reserved
			FirmwareVersionMinor: binary.LittleEndian.Uint16(b[48:50]),
			FirmwareVersionMajor: binary.LittleEndian.Uint16(b[50:52]),
		}
		off += tileDeviceSize
	}
	return StateDeviceChainPacket{StartIndex: start, Tiles: tiles, TotalCount: total}, nil
}

// State64Packet reports the 64 pixels of one tile in the chain.
type State64Packet struct {
	TileIndex int
	X, Y      uint8
	Width     uint8
	Colors    [Tile64Pixels]HSBK
}

func (State64Packet) Type() PacketType { return State64 }

const state64HeaderSize = 1 + 1 + 1 + 1 + 1 // tileIndex, reserved, x, y, width

func decodeState64(p []byte) (Packet, error) {
	if len(p) != state64HeaderSize+Tile64Pixels*HSBKSize {
		return nil, fmt.Errorf("State64: bad length %d", len(p))
	}
	var pkt State64Packet
	pkt.TileIndex = int(p[0])
	// p[1] reserved
	pkt.X = p[2]
	pkt.Y = p[3]
	pkt.Width = p[4]
	off := state64HeaderSize
	for i := 0; i < Tile64Pixels; i++ {
		pkt.Colors[i] = DecodeHSBK(p[off : off+HSBKSize])
		off += HSBKSize
	}
	return pkt, nil
}

// EncodeGet64 builds the Get64 request payload for one tile.
func EncodeGet64(tileIndex int, length uint8, x, y, width uint8) []byte {
	b := make([]byte, 6)
	b[0] = uint8(tileIndex)
	b[1] = length
	// b[2] reserved
	b[3] = x
	b[4] = y
	b[5] = width
	return b
}

const set64HeaderSize = 1 + 1 + 1 + 1 + 1 + 1 + 4 // tileIndex, length, reserved, x, y, width, duration

// EncodeSet64 builds the Set64 request payload addressing one tile's 64
// pixel slots.
func EncodeSet64(tileIndex int, length uint8, x, y, width uint8, duration time.Duration, colors [Tile64Pixels]HSBK) []byte {
	b := make([]byte, set64HeaderSize+Tile64Pixels*HSBKSize)
	b[0] = uint8(tileIndex)
	b[1] = length
	// b[2] reserved
	b[3] = x
	b[4] = y
	b[5] = width
	binary.LittleEndian.PutUint32(b[6:10], millis(duration))
	off := set64HeaderSize
	for i := 0; i < Tile64Pixels; i++ {
		EncodeHSBK(colors[i], b[off:off+HSBKSize])
		off += HSBKSize
	}
	return b
}

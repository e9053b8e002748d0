package protocol

// PacketType identifies a packet's payload schema. Values are fixed by the
// LIFX LAN protocol; see https://lan.developer.lifx.com/docs/packet-contents.
type PacketType uint16

const (
	GetService   PacketType = 2
	StateService PacketType = 3

	GetHostFirmware   PacketType = 14
	StateHostFirmware PacketType = 15

	GetPower   PacketType = 20
	SetPower   PacketType = 21
	StatePower PacketType = 22

	GetLabel   PacketType = 23
	SetLabel   PacketType = 24
	StateLabel PacketType = 25

	GetVersion   PacketType = 32
	StateVersion PacketType = 33

	Acknowledgement PacketType = 45

	GetGroup   PacketType = 51
	StateGroup PacketType = 53

	GetLocation   PacketType = 48
	StateLocation PacketType = 50

	EchoRequest  PacketType = 58
	EchoResponse PacketType = 59

	StateUnhandled PacketType = 223

	GetColor            PacketType = 101
	SetColor            PacketType = 102
	SetWaveform         PacketType = 103
	LightState          PacketType = 107
	GetLightPower       PacketType = 116
	SetLightPower       PacketType = 117
	StateLightPower     PacketType = 118
	SetWaveformOptional PacketType = 119

	GetInfrared   PacketType = 120
	StateInfrared PacketType = 121
	SetInfrared   PacketType = 122

	GetHevCycle             PacketType = 142
	SetHevCycle             PacketType = 143
	StateHevCycle           PacketType = 144
	GetHevCycleConfig       PacketType = 145
	SetHevCycleConfig       PacketType = 146
	StateHevCycleConfig     PacketType = 147
	GetLastHevCycleResult   PacketType = 148
	StateLastHevCycleResult PacketType = 149

	SetColorZones        PacketType = 501
	GetColorZones        PacketType = 502
	StateZone            PacketType = 503
	StateMultiZone       PacketType = 506
	GetMultiZoneEffect   PacketType = 507
	SetMultiZoneEffect   PacketType = 508
	StateMultiZoneEffect PacketType = 509

	SetExtendedColorZones   PacketType = 510
	GetExtendedColorZones   PacketType = 511
	StateExtendedColorZones PacketType = 512

	GetDeviceChain   PacketType = 701
	StateDeviceChain PacketType = 702
	Get64            PacketType = 707
	State64          PacketType = 711
	Set64            PacketType = 715
)

// Kind classifies a packet by the response contract it implies.
type Kind int

const (
	// KindGet expects a single typed response packet.
	KindGet Kind = iota
	// KindSet expects an acknowledgement (or is fire-and-forget).
	KindSet
	// KindOther is an echo/informational packet with no fixed contract.
	KindOther
)

// ExpectedResponse maps a GET-kind request type to the response type it
// should receive. Returns (0, false) for non-GET types.
func ExpectedResponse(reqType PacketType) (PacketType, bool) {
	m := map[PacketType]PacketType{
		GetService:              StateService,
		GetHostFirmware:         StateHostFirmware,
		GetPower:                StatePower,
		GetLabel:                StateLabel,
		GetVersion:              StateVersion,
		GetGroup:                StateGroup,
		GetLocation:             StateLocation,
		GetColor:                LightState,
		GetLightPower:           StateLightPower,
		GetInfrared:             StateInfrared,
		GetHevCycle:             StateHevCycle,
		GetHevCycleConfig:       StateHevCycleConfig,
		GetLastHevCycleResult:   StateLastHevCycleResult,
		GetColorZones:           StateZone,
		GetMultiZoneEffect:      StateMultiZoneEffect,
		GetExtendedColorZones:   StateExtendedColorZones,
		GetDeviceChain:          StateDeviceChain,
		Get64:                   State64,
	}
	t, ok := m[reqType]
	return t, ok
}

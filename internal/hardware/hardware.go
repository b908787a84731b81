// Package hardware defines the narrow device-service contracts the operator
// menu calls, together with the domain events the services raise on the bus.
//
// Implementations live elsewhere: hardware/sim for a simulated cabinet, or an
// external hardware core publishing through hardware/ingress.
package hardware

import (
	"context"
	"errors"
	"time"

	"opmenu/internal/eventbus"
)

// ErrNoService is returned when an operation needs a service that is not
// present on this cabinet.
var ErrNoService = errors.New("service not available")

// ErrUnknownDevice is returned for an id the service does not know.
var ErrUnknownDevice = errors.New("unknown device")

// Door is a logical cabinet door.
type Door struct {
	ID         int
	Name       string
	Open       bool
	LastOpened time.Time
}

// DoorService reports door state.
type DoorService interface {
	Doors() []Door
}

// DoorOpenedEvent is raised when a door opens.
type DoorOpenedEvent struct {
	eventbus.Meta
	DoorID int
	Name   string
}

// DoorClosedEvent is raised when a door closes.
type DoorClosedEvent struct {
	eventbus.Meta
	DoorID int
	Name   string
}

// KeySwitch is an operator or jackpot key switch.
type KeySwitch struct {
	ID   int
	Name string
	On   bool
}

// KeySwitchService reports key switch positions.
type KeySwitchService interface {
	Switches() []KeySwitch
}

// KeyOnEvent is raised when a key is turned on.
type KeyOnEvent struct {
	eventbus.Meta
	SwitchID int
	Name     string
}

// KeyOffEvent is raised when a key is turned off.
type KeyOffEvent struct {
	eventbus.Meta
	SwitchID int
	Name     string
}

// Button is a physical deck button.
type Button struct {
	ID      int
	Name    string
	Pressed bool
	HasLamp bool
}

// ButtonService reports deck buttons.
type ButtonService interface {
	Buttons() []Button
}

// ButtonDownEvent is raised when a button is pressed.
type ButtonDownEvent struct {
	eventbus.Meta
	ButtonID int
}

// ButtonUpEvent is raised when a button is released.
type ButtonUpEvent struct {
	eventbus.Meta
	ButtonID int
}

// ButtonLampService drives the lamps behind deck buttons.
type ButtonLampService interface {
	Lamp(id int) (bool, error)
	SetLamp(id int, on bool) error
	SetAll(on bool)
}

// BellService rings the cabinet bell.
type BellService interface {
	Ring(ctx context.Context, d time.Duration) error
	Stop() error
	Ringing() bool
}

// BellStateEvent is raised when the bell starts or stops ringing.
type BellStateEvent struct {
	eventbus.Meta
	Ringing bool
}

// ReelState is the motion state of a stepper reel.
type ReelState int

const (
	ReelIdle ReelState = iota
	ReelHoming
	ReelSpinning
	ReelStopped
	ReelFaulted
)

func (s ReelState) String() string {
	switch s {
	case ReelIdle:
		return "Idle"
	case ReelHoming:
		return "Homing"
	case ReelSpinning:
		return "Spinning"
	case ReelStopped:
		return "Stopped"
	case ReelFaulted:
		return "Faulted"
	default:
		return "Unknown"
	}
}

// Reel is the status of one stepper reel.
type Reel struct {
	ID    int
	State ReelState
	Step  int
	Fault string
}

// ReelService moves stepper reels.
type ReelService interface {
	Reels() []Reel
	Home(ctx context.Context, id int) error
	SpinTo(ctx context.Context, id, step int) error
	Nudge(ctx context.Context, id, steps int) error
}

// ReelStatusEvent is raised when a reel changes state.
type ReelStatusEvent struct {
	eventbus.Meta
	Reel Reel
}

// ReelStoppedEvent is raised when a reel comes to rest.
type ReelStoppedEvent struct {
	eventbus.Meta
	ReelID int
	Step   int
}

// Color is a 24-bit RGB color.
type Color struct{ R, G, B uint8 }

// Strip is an edge-lighting strip.
type Strip struct {
	ID         int
	Name       string
	LEDCount   int
	Color      Color
	Overridden bool
}

// EdgeLightService controls cabinet edge lighting.
type EdgeLightService interface {
	Strips() []Strip
	Brightness() int
	SetBrightness(pct int) error
	SetColor(strip int, c Color) error
	ClearOverrides()
}

// AudioService controls cabinet sound.
type AudioService interface {
	Volume() int
	SetVolume(level int) error
	Muted() bool
	SetMuted(muted bool)
	Sounds() []string
	Play(ctx context.Context, sound string) error
}

// VolumeChangedEvent is raised when volume or mute changes.
type VolumeChangedEvent struct {
	eventbus.Meta
	Volume int
	Muted  bool
}

// DivertTarget is where accepted coins are routed.
type DivertTarget int

const (
	DivertCashbox DivertTarget = iota
	DivertHopper
)

func (d DivertTarget) String() string {
	if d == DivertHopper {
		return "Hopper"
	}
	return "Cashbox"
}

// Toggle returns the other target.
func (d DivertTarget) Toggle() DivertTarget {
	if d == DivertHopper {
		return DivertCashbox
	}
	return DivertHopper
}

// CoinAcceptorState is the current acceptor configuration.
type CoinAcceptorState struct {
	Enabled bool
	Divert  DivertTarget
	Faulted bool
}

// CoinAcceptorService controls the coin acceptor.
type CoinAcceptorService interface {
	State() CoinAcceptorState
	SetDivert(t DivertTarget) error
	Enable() error
	Disable() error
}

// CoinInEvent is raised for each accepted coin.
type CoinInEvent struct {
	eventbus.Meta
	ValueCents int64
	Divert     DivertTarget
}

// DivertChangedEvent is raised when the divert target changes.
type DivertChangedEvent struct {
	eventbus.Meta
	Divert DivertTarget
}

// NetworkInterface is one host network interface.
type NetworkInterface struct {
	Name      string
	MAC       string
	Addresses []string
	Up        bool
}

// NetworkConfig is the cabinet's IPv4 configuration.
type NetworkConfig struct {
	DHCP    bool
	IP      string
	Mask    string
	Gateway string
	DNS     []string
}

// NetworkService reads and applies network configuration.
type NetworkService interface {
	Interfaces() ([]NetworkInterface, error)
	Config() NetworkConfig
	Apply(ctx context.Context, cfg NetworkConfig) error
}

// NetworkConfigChangedEvent is raised after a configuration is applied.
type NetworkConfigChangedEvent struct {
	eventbus.Meta
	Config NetworkConfig
}

// Services aggregates the device services of a cabinet. Any field may be nil
// when the cabinet lacks that device.
type Services struct {
	Doors      DoorService
	Keys       KeySwitchService
	Buttons    ButtonService
	Lamps      ButtonLampService
	Bell       BellService
	Reels      ReelService
	EdgeLights EdgeLightService
	Audio      AudioService
	Coins      CoinAcceptorService
	Network    NetworkService
}

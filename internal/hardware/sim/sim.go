// Package sim is an in-memory cabinet implementing every hardware service
// contract. It publishes the same events a real hardware core would and can
// generate random activity so the menu has something to show.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"opmenu/internal/eventbus"
	"opmenu/internal/hardware"
	"opmenu/internal/reel"
	"opmenu/internal/validate"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrBusy is returned when a reel is already moving.
	ErrBusy = errors.New("device busy")
	// ErrDisabled is returned when coins are inserted into a disabled acceptor.
	ErrDisabled = errors.New("device disabled")
	// ErrOutOfRange is returned for levels outside 0-100.
	ErrOutOfRange = errors.New("value out of range")
)

// ButtonSpec describes one deck button.
type ButtonSpec struct {
	Name    string
	HasLamp bool
}

// Config shapes the simulated cabinet.
type Config struct {
	Doors    []string
	Keys     []string
	Buttons  []ButtonSpec
	Reels    int
	Geometry reel.Geometry
	Strips   []string
	LEDs     int
	Sounds   []string
	Coins    []int64

	// Activity enables random door and coin events from Start.
	Activity bool
	Interval time.Duration
	// MoveDelay is how long a simulated reel move takes.
	MoveDelay time.Duration
}

// DefaultConfig is a five-reel stepper cabinet.
func DefaultConfig() Config {
	return Config{
		Doors: []string{"Main Door", "Logic Door", "Cash Box Door", "Belly Door", "Drop Door"},
		Keys:  []string{"Operator Key", "Jackpot Reset Key"},
		Buttons: []ButtonSpec{
			{"Cash Out", true}, {"Help", true}, {"Bet One", true},
			{"Max Bet", true}, {"Spin", true}, {"Service", false},
		},
		Reels:     5,
		Geometry:  reel.DefaultGeometry,
		Strips:    []string{"Top Box", "Left Edge", "Right Edge", "Button Deck"},
		LEDs:      48,
		Sounds:    []string{"bell", "coin-drop", "win-small", "win-large", "tilt"},
		Coins:     []int64{5, 25, 100},
		Interval:  3 * time.Second,
		MoveDelay: 400 * time.Millisecond,
	}
}

var defaultStripColor = hardware.Color{R: 255, G: 255, B: 255}

// Simulator holds the state of every simulated device.
type Simulator struct {
	bus    *eventbus.Bus
	logger *zap.Logger
	cfg    Config

	mu         sync.Mutex
	doors      []hardware.Door
	switches   []hardware.KeySwitch
	buttons    []hardware.Button
	lamps      map[int]bool
	ringing    bool
	bellTimer  *time.Timer
	bellGen    int
	reels      []hardware.Reel
	strips     []hardware.Strip
	brightness int
	volume     int
	muted      bool
	coins      hardware.CoinAcceptorState
	network    hardware.NetworkConfig

	runMu  sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// New builds a simulator. bus may be nil, in which case events are dropped.
func New(bus *eventbus.Bus, cfg Config, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = eventbus.New(logger)
	}
	if cfg.Geometry.Stops == 0 {
		cfg.Geometry = reel.DefaultGeometry
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	s := &Simulator{
		bus:        bus,
		logger:     logger.Named("sim"),
		cfg:        cfg,
		lamps:      make(map[int]bool),
		brightness: 80,
		volume:     50,
		coins:      hardware.CoinAcceptorState{Enabled: true, Divert: hardware.DivertCashbox},
		network: hardware.NetworkConfig{
			DHCP:    false,
			IP:      "192.168.1.50",
			Mask:    "255.255.255.0",
			Gateway: "192.168.1.1",
			DNS:     []string{"192.168.1.1"},
		},
	}
	for i, name := range cfg.Doors {
		s.doors = append(s.doors, hardware.Door{ID: i + 1, Name: name})
	}
	for i, name := range cfg.Keys {
		s.switches = append(s.switches, hardware.KeySwitch{ID: i + 1, Name: name})
	}
	for i, b := range cfg.Buttons {
		s.buttons = append(s.buttons, hardware.Button{ID: i + 1, Name: b.Name, HasLamp: b.HasLamp})
	}
	for i := 0; i < cfg.Reels; i++ {
		s.reels = append(s.reels, hardware.Reel{ID: i + 1, State: hardware.ReelIdle})
	}
	for i, name := range cfg.Strips {
		s.strips = append(s.strips, hardware.Strip{ID: i + 1, Name: name, LEDCount: cfg.LEDs, Color: defaultStripColor})
	}
	return s
}

// Bus returns the bus events are published on.
func (s *Simulator) Bus() *eventbus.Bus { return s.bus }

// Services exposes the simulator through the hardware contracts.
func (s *Simulator) Services() hardware.Services {
	return hardware.Services{
		Doors:      doorService{s},
		Keys:       keyService{s},
		Buttons:    buttonService{s},
		Lamps:      lampService{s},
		Bell:       bellService{s},
		Reels:      reelService{s},
		EdgeLights: edgeLightService{s},
		Audio:      audioService{s},
		Coins:      coinService{s},
		Network:    networkService{s},
	}
}

// Start begins random activity when enabled. It returns immediately; Stop
// or cancelling ctx ends the activity.
func (s *Simulator) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.group != nil {
		return errors.New("simulator already started")
	}
	if !s.cfg.Activity {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	var rngMu sync.Mutex
	intn := func(n int) int {
		rngMu.Lock()
		defer rngMu.Unlock()
		return rng.IntN(n)
	}
	g.Go(func() error { return s.tick(ctx, func() { s.flapDoor(intn) }) })
	g.Go(func() error { return s.tick(ctx, func() { s.randomCoin(intn) }) })
	s.cancel = cancel
	s.group = g
	s.logger.Info("activity started", zap.Duration("interval", s.cfg.Interval))
	return nil
}

// Stop ends random activity and cancels any pending bell timer.
func (s *Simulator) Stop() {
	s.runMu.Lock()
	cancel, g := s.cancel, s.group
	s.cancel, s.group = nil, nil
	s.runMu.Unlock()
	if cancel != nil {
		cancel()
		_ = g.Wait()
		s.logger.Info("activity stopped")
	}
	s.mu.Lock()
	if s.bellTimer != nil {
		s.bellTimer.Stop()
		s.bellTimer = nil
	}
	s.mu.Unlock()
}

func (s *Simulator) tick(ctx context.Context, fn func()) error {
	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			fn()
		}
	}
}

func (s *Simulator) flapDoor(intn func(int) int) {
	s.mu.Lock()
	n := len(s.doors)
	s.mu.Unlock()
	if n == 0 {
		return
	}
	id := intn(n) + 1
	if err := s.SetDoor(id, !s.doorOpen(id)); err != nil {
		s.logger.Warn("door flap", zap.Error(err))
	}
}

func (s *Simulator) randomCoin(intn func(int) int) {
	if len(s.cfg.Coins) == 0 {
		return
	}
	value := s.cfg.Coins[intn(len(s.cfg.Coins))]
	if err := s.InsertCoin(value); err != nil && !errors.Is(err, ErrDisabled) {
		s.logger.Warn("coin in", zap.Error(err))
	}
}

func (s *Simulator) doorOpen(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.doors {
		if d.ID == id {
			return d.Open
		}
	}
	return false
}

// SetDoor opens or closes a door.
func (s *Simulator) SetDoor(id int, open bool) error {
	s.mu.Lock()
	idx := -1
	for i := range s.doors {
		if s.doors[i].ID == id {
			idx = i
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("door %d: %w", id, hardware.ErrUnknownDevice)
	}
	d := &s.doors[idx]
	if d.Open == open {
		s.mu.Unlock()
		return nil
	}
	d.Open = open
	if open {
		d.LastOpened = time.Now()
	}
	name := d.Name
	s.mu.Unlock()

	if open {
		s.bus.Publish(hardware.DoorOpenedEvent{Meta: eventbus.NewMeta(), DoorID: id, Name: name})
	} else {
		s.bus.Publish(hardware.DoorClosedEvent{Meta: eventbus.NewMeta(), DoorID: id, Name: name})
	}
	return nil
}

// TurnKey sets a key switch position.
func (s *Simulator) TurnKey(id int, on bool) error {
	s.mu.Lock()
	idx := -1
	for i := range s.switches {
		if s.switches[i].ID == id {
			idx = i
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("key switch %d: %w", id, hardware.ErrUnknownDevice)
	}
	changed := s.switches[idx].On != on
	s.switches[idx].On = on
	name := s.switches[idx].Name
	s.mu.Unlock()

	if !changed {
		return nil
	}
	if on {
		s.bus.Publish(hardware.KeyOnEvent{Meta: eventbus.NewMeta(), SwitchID: id, Name: name})
	} else {
		s.bus.Publish(hardware.KeyOffEvent{Meta: eventbus.NewMeta(), SwitchID: id, Name: name})
	}
	return nil
}

// PressButton sets a button's pressed state.
func (s *Simulator) PressButton(id int, pressed bool) error {
	s.mu.Lock()
	idx := -1
	for i := range s.buttons {
		if s.buttons[i].ID == id {
			idx = i
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("button %d: %w", id, hardware.ErrUnknownDevice)
	}
	changed := s.buttons[idx].Pressed != pressed
	s.buttons[idx].Pressed = pressed
	s.mu.Unlock()

	if !changed {
		return nil
	}
	if pressed {
		s.bus.Publish(hardware.ButtonDownEvent{Meta: eventbus.NewMeta(), ButtonID: id})
	} else {
		s.bus.Publish(hardware.ButtonUpEvent{Meta: eventbus.NewMeta(), ButtonID: id})
	}
	return nil
}

// InsertCoin accepts a coin of value cents.
func (s *Simulator) InsertCoin(cents int64) error {
	s.mu.Lock()
	st := s.coins
	s.mu.Unlock()
	if !st.Enabled || st.Faulted {
		return ErrDisabled
	}
	s.bus.Publish(hardware.CoinInEvent{Meta: eventbus.NewMeta(), ValueCents: cents, Divert: st.Divert})
	return nil
}

// FaultReel puts a reel into the faulted state.
func (s *Simulator) FaultReel(id int, reason string) error {
	s.mu.Lock()
	r, err := s.reelLocked(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	r.State = hardware.ReelFaulted
	r.Fault = reason
	snapshot := *r
	s.mu.Unlock()
	s.bus.Publish(hardware.ReelStatusEvent{Meta: eventbus.NewMeta(), Reel: snapshot})
	return nil
}

func (s *Simulator) reelLocked(id int) (*hardware.Reel, error) {
	for i := range s.reels {
		if s.reels[i].ID == id {
			return &s.reels[i], nil
		}
	}
	return nil, fmt.Errorf("reel %d: %w", id, hardware.ErrUnknownDevice)
}

// move runs a simulated reel move ending at target.
func (s *Simulator) move(ctx context.Context, id int, state hardware.ReelState, target func(cur int) int) error {
	s.mu.Lock()
	r, err := s.reelLocked(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if r.State == hardware.ReelSpinning || r.State == hardware.ReelHoming {
		s.mu.Unlock()
		return fmt.Errorf("reel %d: %w", id, ErrBusy)
	}
	r.State = state
	r.Fault = ""
	moving := *r
	s.mu.Unlock()
	s.bus.Publish(hardware.ReelStatusEvent{Meta: eventbus.NewMeta(), Reel: moving})

	timer := time.NewTimer(s.cfg.MoveDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		s.mu.Lock()
		r, _ := s.reelLocked(id)
		r.State = hardware.ReelStopped
		stopped := *r
		s.mu.Unlock()
		s.bus.Publish(hardware.ReelStatusEvent{Meta: eventbus.NewMeta(), Reel: stopped})
		return ctx.Err()
	case <-timer.C:
	}

	s.mu.Lock()
	r, _ = s.reelLocked(id)
	r.Step = s.cfg.Geometry.NormalizeSteps(target(r.Step))
	r.State = hardware.ReelStopped
	stopped := *r
	s.mu.Unlock()
	s.bus.Publish(hardware.ReelStatusEvent{Meta: eventbus.NewMeta(), Reel: stopped})
	s.bus.Publish(hardware.ReelStoppedEvent{Meta: eventbus.NewMeta(), ReelID: id, Step: stopped.Step})
	return nil
}

func percent(v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%w: %d", ErrOutOfRange, v)
	}
	return nil
}

type doorService struct{ s *Simulator }

func (d doorService) Doors() []hardware.Door {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	return append([]hardware.Door(nil), d.s.doors...)
}

type keyService struct{ s *Simulator }

func (k keyService) Switches() []hardware.KeySwitch {
	k.s.mu.Lock()
	defer k.s.mu.Unlock()
	return append([]hardware.KeySwitch(nil), k.s.switches...)
}

type buttonService struct{ s *Simulator }

func (b buttonService) Buttons() []hardware.Button {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	return append([]hardware.Button(nil), b.s.buttons...)
}

type lampService struct{ s *Simulator }

func (l lampService) hasLamp(id int) bool {
	for _, b := range l.s.buttons {
		if b.ID == id {
			return b.HasLamp
		}
	}
	return false
}

func (l lampService) Lamp(id int) (bool, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if !l.hasLamp(id) {
		return false, fmt.Errorf("lamp %d: %w", id, hardware.ErrUnknownDevice)
	}
	return l.s.lamps[id], nil
}

func (l lampService) SetLamp(id int, on bool) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if !l.hasLamp(id) {
		return fmt.Errorf("lamp %d: %w", id, hardware.ErrUnknownDevice)
	}
	l.s.lamps[id] = on
	return nil
}

func (l lampService) SetAll(on bool) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	for _, b := range l.s.buttons {
		if b.HasLamp {
			l.s.lamps[b.ID] = on
		}
	}
}

type bellService struct{ s *Simulator }

func (b bellService) Ring(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("%w: bell duration %s", ErrOutOfRange, d)
	}
	b.s.mu.Lock()
	if b.s.bellTimer != nil {
		b.s.bellTimer.Stop()
	}
	was := b.s.ringing
	b.s.ringing = true
	b.s.bellGen++
	gen := b.s.bellGen
	b.s.bellTimer = time.AfterFunc(d, func() { b.expire(gen) })
	b.s.mu.Unlock()
	if !was {
		b.s.bus.Publish(hardware.BellStateEvent{Meta: eventbus.NewMeta(), Ringing: true})
	}
	return nil
}

// expire stops the bell unless a later Ring replaced the timer.
func (b bellService) expire(gen int) {
	b.s.mu.Lock()
	current := gen == b.s.bellGen
	b.s.mu.Unlock()
	if current {
		_ = b.Stop()
	}
}

func (b bellService) Stop() error {
	b.s.mu.Lock()
	if b.s.bellTimer != nil {
		b.s.bellTimer.Stop()
		b.s.bellTimer = nil
	}
	was := b.s.ringing
	b.s.ringing = false
	b.s.mu.Unlock()
	if was {
		b.s.bus.Publish(hardware.BellStateEvent{Meta: eventbus.NewMeta(), Ringing: false})
	}
	return nil
}

func (b bellService) Ringing() bool {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	return b.s.ringing
}

type reelService struct{ s *Simulator }

func (r reelService) Reels() []hardware.Reel {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]hardware.Reel(nil), r.s.reels...)
}

func (r reelService) Home(ctx context.Context, id int) error {
	return r.s.move(ctx, id, hardware.ReelHoming, func(int) int { return 0 })
}

func (r reelService) SpinTo(ctx context.Context, id, step int) error {
	return r.s.move(ctx, id, hardware.ReelSpinning, func(int) int { return step })
}

func (r reelService) Nudge(ctx context.Context, id, steps int) error {
	return r.s.move(ctx, id, hardware.ReelSpinning, func(cur int) int { return cur + steps })
}

type edgeLightService struct{ s *Simulator }

func (e edgeLightService) Strips() []hardware.Strip {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return append([]hardware.Strip(nil), e.s.strips...)
}

func (e edgeLightService) Brightness() int {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return e.s.brightness
}

func (e edgeLightService) SetBrightness(pct int) error {
	if err := percent(pct); err != nil {
		return err
	}
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	e.s.brightness = pct
	return nil
}

func (e edgeLightService) SetColor(strip int, c hardware.Color) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	for i := range e.s.strips {
		if e.s.strips[i].ID == strip {
			e.s.strips[i].Color = c
			e.s.strips[i].Overridden = true
			return nil
		}
	}
	return fmt.Errorf("strip %d: %w", strip, hardware.ErrUnknownDevice)
}

func (e edgeLightService) ClearOverrides() {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	for i := range e.s.strips {
		e.s.strips[i].Color = defaultStripColor
		e.s.strips[i].Overridden = false
	}
}

type audioService struct{ s *Simulator }

func (a audioService) Volume() int {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return a.s.volume
}

func (a audioService) SetVolume(level int) error {
	if err := percent(level); err != nil {
		return err
	}
	a.s.mu.Lock()
	changed := a.s.volume != level
	a.s.volume = level
	muted := a.s.muted
	a.s.mu.Unlock()
	if changed {
		a.s.bus.Publish(hardware.VolumeChangedEvent{Meta: eventbus.NewMeta(), Volume: level, Muted: muted})
	}
	return nil
}

func (a audioService) Muted() bool {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return a.s.muted
}

func (a audioService) SetMuted(muted bool) {
	a.s.mu.Lock()
	changed := a.s.muted != muted
	a.s.muted = muted
	vol := a.s.volume
	a.s.mu.Unlock()
	if changed {
		a.s.bus.Publish(hardware.VolumeChangedEvent{Meta: eventbus.NewMeta(), Volume: vol, Muted: muted})
	}
}

func (a audioService) Sounds() []string {
	return append([]string(nil), a.s.cfg.Sounds...)
}

func (a audioService) Play(ctx context.Context, sound string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, name := range a.s.cfg.Sounds {
		if name == sound {
			a.s.logger.Debug("play sound", zap.String("sound", sound), zap.Bool("muted", a.Muted()))
			return nil
		}
	}
	return fmt.Errorf("sound %q: %w", sound, hardware.ErrUnknownDevice)
}

type coinService struct{ s *Simulator }

func (c coinService) State() hardware.CoinAcceptorState {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.coins
}

func (c coinService) SetDivert(t hardware.DivertTarget) error {
	if t != hardware.DivertCashbox && t != hardware.DivertHopper {
		return fmt.Errorf("%w: divert %d", ErrOutOfRange, t)
	}
	c.s.mu.Lock()
	changed := c.s.coins.Divert != t
	c.s.coins.Divert = t
	c.s.mu.Unlock()
	if changed {
		c.s.bus.Publish(hardware.DivertChangedEvent{Meta: eventbus.NewMeta(), Divert: t})
	}
	return nil
}

func (c coinService) Enable() error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.coins.Enabled = true
	return nil
}

func (c coinService) Disable() error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.coins.Enabled = false
	return nil
}

type networkService struct{ s *Simulator }

func (n networkService) Interfaces() ([]hardware.NetworkInterface, error) {
	cfg := n.Config()
	addr := cfg.IP
	if cfg.DHCP {
		addr = "192.168.1.77"
	}
	return []hardware.NetworkInterface{
		{Name: "lo", Addresses: []string{"127.0.0.1"}, Up: true},
		{Name: "eth0", MAC: "02:00:5e:10:00:01", Addresses: []string{addr}, Up: true},
	}, nil
}

func (n networkService) Config() hardware.NetworkConfig {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	cfg := n.s.network
	cfg.DNS = append([]string(nil), cfg.DNS...)
	return cfg
}

// Apply validates a static configuration before storing it. A static
// configuration needs an address, mask and gateway; DHCP configurations are
// accepted without address checks.
func (n networkService) Apply(ctx context.Context, cfg hardware.NetworkConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !cfg.DHCP {
		if err := validate.IPv4(cfg.IP); err != nil {
			return fmt.Errorf("ip: %w", err)
		}
		if err := validate.SubnetMask(cfg.Mask); err != nil {
			return fmt.Errorf("mask: %w", err)
		}
		if err := validate.Gateway(cfg.IP, cfg.Mask, cfg.Gateway); err != nil {
			return fmt.Errorf("gateway: %w", err)
		}
		for _, dns := range cfg.DNS {
			if err := validate.IPv4(dns); err != nil {
				return fmt.Errorf("dns: %w", err)
			}
		}
	}
	n.s.mu.Lock()
	n.s.network = cfg
	n.s.network.DNS = append([]string(nil), cfg.DNS...)
	n.s.mu.Unlock()
	n.s.logger.Info("network applied", zap.Bool("dhcp", cfg.DHCP), zap.String("ip", cfg.IP))
	n.s.bus.Publish(hardware.NetworkConfigChangedEvent{Meta: eventbus.NewMeta(), Config: cfg})
	return nil
}

package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"karolbroda.com/lyricsync/internal/track"
)

const (
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
)

// MPRIS follows a desktop player over the session bus.
type MPRIS struct {
	bus        *dbus.Conn
	ownsBus    bool
	service    string
	signalChan chan *dbus.Signal
	changes    chan struct{}
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// DialMPRIS connects to the session bus and starts listening for signals from
// service.
func DialMPRIS(service string) (*MPRIS, error) {
	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	m, err := NewMPRIS(bus, service)
	if err != nil {
		bus.Close()
		return nil, err
	}
	m.ownsBus = true

	err = m.start()
	if err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func NewMPRIS(bus *dbus.Conn, service string) (*MPRIS, error) {
	if bus == nil {
		return nil, errors.New("nil dbus connection")
	}
	if service == "" {
		return nil, errors.New("empty mpris service name")
	}

	return &MPRIS{
		bus:      bus,
		service:  service,
		changes:  make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}, nil
}

func (m *MPRIS) Name() string {
	return "mpris:" + strings.TrimPrefix(m.service, mprisPrefix)
}

func (m *MPRIS) start() error {
	m.signalChan = make(chan *dbus.Signal, 10)
	m.bus.Signal(m.signalChan)

	matchPropertiesChanged := fmt.Sprintf(
		"type='signal',sender='%s',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged',path='%s'",
		m.service, mprisPath,
	)
	matchSeeked := fmt.Sprintf(
		"type='signal',sender='%s',interface='%s',member='Seeked',path='%s'",
		m.service, mprisPlayerIface, mprisPath,
	)

	err := m.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchPropertiesChanged).Err
	if err != nil {
		return fmt.Errorf("failed to add properties match: %w", err)
	}

	err = m.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchSeeked).Err
	if err != nil {
		return fmt.Errorf("failed to add seeked match: %w", err)
	}

	go m.signalLoop()
	return nil
}

func (m *MPRIS) Close() error {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		if m.signalChan != nil {
			m.bus.RemoveSignal(m.signalChan)
		}
	})
	if m.ownsBus {
		return m.bus.Close()
	}
	return nil
}

func (m *MPRIS) Changes() <-chan struct{} {
	return m.changes
}

// Identity is the player's human readable name, "" if it has none.
func (m *MPRIS) Identity() string {
	return PlayerIdentity(m.bus, m.service)
}

func (m *MPRIS) Snapshot(ctx context.Context) (*Snapshot, error) {
	obj := m.bus.Object(m.service, mprisPath)

	props := map[string]dbus.Variant{}
	err := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.GetAll", 0, mprisPlayerIface).Store(&props)
	if err != nil {
		return nil, fmt.Errorf("failed to read player properties: %w", err)
	}

	snap := &Snapshot{Rate: 1}

	if v, ok := props["Metadata"]; ok {
		if metadata, ok := v.Value().(map[string]dbus.Variant); ok {
			snap.Track = trackFromMetadata(metadata)
		}
	}

	if v, ok := props["PlaybackStatus"]; ok {
		status, _ := v.Value().(string)
		snap.Status = parseMPRISStatus(status)
	}

	if v, ok := props["Rate"]; ok {
		if rate, ok := v.Value().(float64); ok && rate > 0 {
			snap.Rate = rate
		}
	}

	// not every player includes Position in GetAll
	position, ok := props["Position"]
	if !ok {
		position, err = obj.GetProperty(mprisPlayerIface + ".Position")
		if err != nil {
			return nil, fmt.Errorf("failed to get position property: %w", err)
		}
	}
	if micros, ok := position.Value().(int64); ok && micros > 0 {
		snap.PositionMillis = micros / 1_000
	}

	return snap, nil
}

func (m *MPRIS) signalLoop() {
	for {
		select {
		case sig, ok := <-m.signalChan:
			if !ok {
				return
			}
			if m.relevant(sig) {
				m.notify()
			}
		case <-m.stopChan:
			return
		}
	}
}

func (m *MPRIS) relevant(sig *dbus.Signal) bool {
	if sig == nil {
		return false
	}

	switch sig.Name {
	case "org.mpris.MediaPlayer2.Player.Seeked":
		return true
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		if len(sig.Body) < 2 {
			return false
		}
		iface, _ := sig.Body[0].(string)
		return iface == mprisPlayerIface
	}
	return false
}

func (m *MPRIS) notify() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func parseMPRISStatus(status string) Status {
	switch status {
	case "Playing":
		return StatusPlaying
	case "Paused":
		return StatusPaused
	default:
		return StatusStopped
	}
}

func trackFromMetadata(metadata map[string]dbus.Variant) *track.Info {
	return &track.Info{
		Title:          extractString(metadata, "xesam:title"),
		Artist:         extractArtist(metadata, "xesam:artist"),
		Album:          extractString(metadata, "xesam:album"),
		ArtworkURL:     extractString(metadata, "mpris:artUrl"),
		SourceID:       extractTrackID(metadata, "mpris:trackid"),
		DurationMillis: extractDurationMillis(metadata, "mpris:length"),
	}
}

// ListPlayers returns the bus names of every running mpris player.
func ListPlayers(bus *dbus.Conn) ([]string, error) {
	var names []string
	err := bus.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names)
	if err != nil {
		return nil, fmt.Errorf("failed to list dbus names: %w", err)
	}

	var players []string
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			players = append(players, name)
		}
	}
	return players, nil
}

func PlayerIdentity(bus *dbus.Conn, service string) string {
	prop, err := bus.Object(service, mprisPath).GetProperty("org.mpris.MediaPlayer2.Identity")
	if err != nil {
		return ""
	}
	identity, _ := prop.Value().(string)
	return identity
}

func extractString(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}
	text, _ := variant.Value().(string)
	return text
}

// mpris:trackid is an object path, some players send it as a string.
func extractTrackID(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}

	switch typed := variant.Value().(type) {
	case dbus.ObjectPath:
		return string(typed)
	case string:
		return typed
	default:
		return ""
	}
}

func extractArtist(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}

	switch typed := variant.Value().(type) {
	case []string:
		return strings.Join(typed, ", ")
	case string:
		return typed
	default:
		return ""
	}
}

func extractDurationMillis(metadata map[string]dbus.Variant, key string) int64 {
	variant, exists := metadata[key]
	if !exists {
		return 0
	}

	switch typed := variant.Value().(type) {
	case int64:
		if typed <= 0 {
			return 0
		}
		return typed / 1_000
	case uint64:
		return int64(typed / 1_000)
	default:
		return 0
	}
}

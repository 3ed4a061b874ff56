// Package renderdev watches udev netlink events for the QSV render node so a
// hot-removed (or driver-reset) device surfaces in the log instead of as a
// string of baffling encode failures.
package renderdev

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"recode/internal/logging"
)

// Monitor listens for remove/change events on the configured DRM device.
type Monitor struct {
	device  string
	logger  *slog.Logger
	onEvent func(action, device string)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// New creates a monitor for the given render node, e.g. /dev/dri/renderD128.
// onEvent is invoked for matched events; it may be nil.
func New(device string, logger *slog.Logger, onEvent func(action, device string)) *Monitor {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil
	}
	return &Monitor{
		device:  device,
		logger:  logging.NewComponentLogger(logger, "renderdev"),
		onEvent: onEvent,
	}
}

// Start begins listening for udev events. A failed netlink connection is
// non-fatal; encoding works without the watcher.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; render device events will not be reported",
			logging.Error(err))
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Debug("render device monitor started", logging.String("device", m.device))
	return nil
}

// Stop shuts the monitor down.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, drmMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error", logging.Error(err))
		}
	}
}

// drmMatcher matches remove and change events on the drm subsystem.
func drmMatcher() netlink.Matcher {
	action := "remove|change"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "drm",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	devname := DeviceName(uevent.Env)
	if devname == "" || devname != m.device {
		return
	}

	m.logger.Warn("render device event",
		logging.String("device", devname),
		logging.String("action", string(uevent.Action)))

	if m.onEvent != nil {
		m.onEvent(string(uevent.Action), devname)
	}
}

// DeviceName extracts the /dev path from a uevent environment.
func DeviceName(env map[string]string) string {
	if devname := env["DEVNAME"]; devname != "" {
		if strings.HasPrefix(devname, "/dev/") {
			return devname
		}
		return "/dev/" + devname
	}

	devpath := env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	last := parts[len(parts)-1]
	if last == "" {
		return ""
	}
	return "/dev/dri/" + last
}

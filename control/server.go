package control

import (
	"encoding/json"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openroad/dashcam/errors"
	"github.com/openroad/dashcam/events"
	"github.com/openroad/dashcam/logging"
	"github.com/openroad/dashcam/sequencer"
	"github.com/openroad/dashcam/shutdown"
)

// Frame types originated by the server.
const (
	FrameHello = "hello"
	FrameState = "state"
	FrameAck   = "ack"
	FrameError = "error"
)

// Command types accepted from clients.
const (
	CommandShutdown = "shutdown"
	CommandForce    = "force_shutdown"
	CommandStatus   = "status"
)

// Commander is the slice of the sequencer the control channel needs.
type Commander interface {
	Shutdown()
	ForceShutdown()
	State() sequencer.State
}

// Config holds control channel configuration.
type Config struct {
	// Listen is the bind address. Default: 127.0.0.1:8787.
	Listen string

	// SendBuf is the per-client outbound queue size. Default: 32.
	SendBuf int

	// BroadcastBuf is the hub inbound queue size. Default: 128.
	BroadcastBuf int
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Listen:       "127.0.0.1:8787",
		SendBuf:      32,
		BroadcastBuf: 128,
	}
}

// relaySubjects are the bus subjects forwarded to connected clients.
var relaySubjects = []string{
	events.SubjectButtonPress,
	events.SubjectButtonRelease,
	events.SubjectButtonForce,
	events.SubjectStateChanged,
	events.SubjectHoldStep,
	events.SubjectTripStarted,
	events.SubjectTripEnded,
	events.SubjectShutdown,
}

// Server is the websocket control channel.
type Server struct {
	cfg       Config
	commander Commander
	coord     *shutdown.Coordinator
	bus       events.Bus
	logger    *logging.Logger

	hub     *hub
	httpSrv *http.Server
	ln      net.Listener
	loop    *shutdown.Loop
	subs    []events.Subscription

	running atomic.Bool
}

var upgrader = websocket.Upgrader{
	// The channel binds to loopback by default; origin enforcement is a
	// deployment concern.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewServer creates a control server. bus may be nil, in which case no
// daemon events are relayed.
func NewServer(cfg Config, commander Commander, coord *shutdown.Coordinator, bus events.Bus, logger *logging.Logger) *Server {
	def := DefaultConfig()
	if cfg.Listen == "" {
		cfg.Listen = def.Listen
	}
	if logger == nil {
		logger = logging.New()
	}
	return &Server{
		cfg:       cfg,
		commander: commander,
		coord:     coord,
		bus:       bus,
		logger:    logger.WithComponent("control"),
	}
}

// Start binds the listen address and begins serving. Idempotent; a
// second Start is a no-op.
func (s *Server) Start() error {
	if s.running.Swap(true) {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		s.running.Store(false)
		return errors.New(errors.ErrCodeInternal, "binding "+s.cfg.Listen,
			errors.WithCause(err), errors.WithComponent("control"))
	}
	s.ln = ln

	s.hub = newHub(s.logger, s.cfg.SendBuf, s.cfg.BroadcastBuf)
	s.loop = s.coord.RegisterLoop(shutdown.SubsystemControl)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.httpSrv = &http.Server{Handler: mux}

	go s.hub.run(s.loop.StopRequested())
	s.startRelay()
	go s.httpSrv.Serve(ln)
	go s.watchStop()

	s.logger.Info("control_listening", map[string]interface{}{
		"addr": ln.Addr().String(),
	})
	return nil
}

// Addr returns the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	if s.hub == nil {
		return 0
	}
	return s.hub.count()
}

// Stop asks the server loop to exit and joins it with a short timeout.
func (s *Server) Stop() {
	if !s.running.Swap(false) {
		return
	}
	s.loop.RequestStop()
	select {
	case <-s.loop.Done():
	case <-time.After(2 * time.Second):
		s.logger.UnitAbandoned("loop", shutdown.SubsystemControl, 2*time.Second)
	}
}

// watchStop tears the server down once the loop is asked to stop,
// whether by Stop or by the coordinator's bulk sweep.
func (s *Server) watchStop() {
	defer s.loop.Finish()
	defer s.coord.UnregisterLoop(s.loop)

	<-s.loop.StopRequested()

	s.httpSrv.Close()
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
}

// startRelay forwards daemon events from the bus to connected clients.
func (s *Server) startRelay() {
	if s.bus == nil {
		return
	}
	for _, subject := range relaySubjects {
		sub, err := s.bus.Subscribe(subject)
		if err != nil {
			s.logger.Warn("relay_subscribe_failed", map[string]interface{}{
				"subject": subject,
				"error":   err.Error(),
			})
			continue
		}
		s.subs = append(s.subs, sub)

		go func() {
			for ev := range sub.Events() {
				frame, err := json.Marshal(envelope{
					Type: ev.Subject,
					Ts:   ev.At,
					Data: string(ev.Data),
				})
				if err != nil {
					continue
				}
				s.hub.send(frame)
			}
		}()
	}
}

// handleWS upgrades a connection, registers the client and greets it
// with the current sequencer state.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade_failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	c := newClient(s.hub, conn, r.RemoteAddr, s.logger)
	s.hub.register <- c

	// The pumps outlive the handler: net/http cancels the request
	// context on return, so the connection lifetime is managed by the
	// hub instead.
	go c.writePump()
	go c.readPump(s.onCommand)

	hello, err := json.Marshal(envelope{
		Type: FrameHello,
		Ts:   time.Now().UTC(),
		Data: s.commander.State().String(),
	})
	if err == nil {
		c.reply(hello)
	}
}

// onCommand dispatches one inbound frame. Shutdown commands run on their
// own goroutine: the commit sequence takes seconds and the read pump
// must keep servicing control frames meanwhile.
func (s *Server) onCommand(c *client, msg []byte) {
	var frame envelope
	if err := json.Unmarshal(msg, &frame); err != nil {
		c.reply(s.frame(FrameError, "malformed frame"))
		return
	}

	switch frame.Type {
	case CommandShutdown:
		s.logger.Info("shutdown_commanded", map[string]interface{}{
			"remote": c.remoteAddr,
		})
		go s.commander.Shutdown()
		c.reply(s.frame(FrameAck, CommandShutdown))

	case CommandForce:
		s.logger.Warn("force_shutdown_commanded", map[string]interface{}{
			"remote": c.remoteAddr,
		})
		go s.commander.ForceShutdown()
		c.reply(s.frame(FrameAck, CommandForce))

	case CommandStatus:
		c.reply(s.frame(FrameState, s.commander.State().String()))

	default:
		c.reply(s.frame(FrameError, "unknown command "+frame.Type))
	}
}

func (s *Server) frame(frameType string, data interface{}) []byte {
	msg, err := json.Marshal(envelope{
		Type: frameType,
		Ts:   time.Now().UTC(),
		Data: data,
	})
	if err != nil {
		return nil
	}
	return msg
}

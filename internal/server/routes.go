package server

import (
	"fmt"
	"strconv"
)

type handlerFunc func(req *request) Envelope

// routes maps "VERB /path" to its handler. Read routes answer from the
// aggregator; write routes go through the dispatcher.
func (s *Server) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		"GET /ping":            s.handlePing,
		"GET /a11y_tree":       s.handleTree,
		"GET /phone_state":     s.handlePhoneState,
		"GET /state":           s.handleState,
		"GET /screenshot":      s.handleScreenshot,
		"POST /keyboard/input": s.handleKeyboardInput,
		"POST /keyboard/clear": s.handleKeyboardClear,
		"POST /keyboard/key":   s.handleKeyboardKey,
		"POST /overlay_offset": s.handleOverlayOffset,
	}
}

// dispatch resolves the route and runs its handler. A panicking handler is
// converted into an error envelope; the worker and the server live on.
func (s *Server) dispatch(req *request) (env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("handler panicked", "method", req.method, "path", req.path, "panic", r)
			env = Error(fmt.Sprintf("internal error: %v", r))
		}
	}()
	h, ok := s.mux[req.method+" "+req.path]
	if !ok {
		return Error(fmt.Sprintf("Unknown endpoint: %s %s", req.method, req.path))
	}
	return h(req)
}

func (s *Server) handlePing(*request) Envelope {
	return Success("pong")
}

func (s *Server) handleTree(*request) Envelope {
	return Success(s.agg.Tree())
}

func (s *Server) handlePhoneState(*request) Envelope {
	return Success(s.agg.DeviceState())
}

func (s *Server) handleState(*request) Envelope {
	return Success(s.agg.Combined())
}

func (s *Server) handleScreenshot(req *request) Envelope {
	hide := true
	if v := req.query.Get("hideOverlay"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			hide = parsed
		}
	}
	payload, errResult := s.disp.Screenshot(hide)
	if errResult != "" {
		return Error(errResult)
	}
	return Success(payload)
}

func (s *Server) handleKeyboardInput(req *request) Envelope {
	return CommandEnvelope(s.disp.InputText(req.params))
}

func (s *Server) handleKeyboardClear(*request) Envelope {
	return CommandEnvelope(s.disp.ClearText())
}

func (s *Server) handleKeyboardKey(req *request) Envelope {
	return CommandEnvelope(s.disp.SendKey(req.params))
}

func (s *Server) handleOverlayOffset(req *request) Envelope {
	return CommandEnvelope(s.disp.SetOverlayOffset(req.params))
}
